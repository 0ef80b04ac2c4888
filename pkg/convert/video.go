package convert

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/markhive/markhive/pkg/models"
)

const ffprobeTimeout = 2 * time.Minute

// videoFrontMatter is the metadata document emitted for video files. The
// video content itself is never transcribed; the front matter makes the
// file discoverable by search.
type videoFrontMatter struct {
	Type       string  `yaml:"type"`
	File       string  `yaml:"file"`
	SHA256     string  `yaml:"sha256"`
	SizeBytes  int64   `yaml:"size_bytes"`
	DurationS  float64 `yaml:"duration_seconds,omitempty"`
	Width      int     `yaml:"width,omitempty"`
	Height     int     `yaml:"height,omitempty"`
	VideoCodec string  `yaml:"video_codec,omitempty"`
	AudioCodec string  `yaml:"audio_codec,omitempty"`
	Format     string  `yaml:"format,omitempty"`
	BitRate    int64   `yaml:"bit_rate,omitempty"`
	Created    string  `yaml:"created,omitempty"`
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
		Tags       struct {
			CreationTime string `json:"creation_time"`
		} `json:"tags"`
	} `json:"format"`
}

// handleVideo produces a markdown metadata document for a video file:
// sha256, size, and whatever ffprobe can report about streams and
// container. A missing ffprobe binary degrades to hash and size only.
func handleVideo(ctx context.Context, path, fileType string) Result {
	sum, size, err := hashFile(path)
	if err != nil {
		return Fail(path, fileType, fmt.Sprintf("read failed: %v", err))
	}

	fm := videoFrontMatter{
		Type:      "video",
		File:      filepath.Base(path),
		SHA256:    sum,
		SizeBytes: size,
	}

	if probe, err := runFFProbe(ctx, path); err == nil {
		fm.Format = probe.Format.FormatName
		fm.DurationS, _ = strconv.ParseFloat(probe.Format.Duration, 64)
		fm.BitRate, _ = strconv.ParseInt(probe.Format.BitRate, 10, 64)
		fm.Created = probe.Format.Tags.CreationTime
		for _, s := range probe.Streams {
			switch s.CodecType {
			case "video":
				if fm.VideoCodec == "" {
					fm.VideoCodec = s.CodecName
					fm.Width = s.Width
					fm.Height = s.Height
				}
			case "audio":
				if fm.AudioCodec == "" {
					fm.AudioCodec = s.CodecName
				}
			}
		}
	}

	body := fmt.Sprintf("# %s\n\nVideo file. Metadata extracted; content not transcribed.\n",
		filepath.Base(path))
	md, err := frontMatter(fm, body)
	if err != nil {
		return Fail(path, fileType, err.Error())
	}
	return Succeed(path, fileType, md, models.ConversionVideoMetadata)
}

func runFFProbe(ctx context.Context, path string) (*ffprobeOutput, error) {
	bin := options().FFProbePath
	if bin == "" {
		bin = "ffprobe"
	}

	cctx, cancel := context.WithTimeout(ctx, ffprobeTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("ffprobe output: %w", err)
	}
	return &out, nil
}

// hashFile returns the hex sha256 and size of a file, streaming rather
// than loading it into memory.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
