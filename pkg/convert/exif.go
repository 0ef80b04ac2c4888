package convert

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Minimal EXIF reader for the camera-metadata allow-list in image front
// matter. Only ASCII and SHORT tags from IFD0 and the Exif sub-IFD are
// read; everything else (GPS, maker notes, thumbnails) is deliberately
// ignored.

const exifReadLimit = 1 << 20 // APP1 lives at the front of the file

var exifTagNames = map[uint16]string{
	0x010F: "make",
	0x0110: "model",
	0x0112: "orientation",
	0x0131: "software",
	0x0132: "datetime",
	0x013B: "artist",
	0x8298: "copyright",
	0x9003: "datetime_original",
	0xA434: "lens_model",
}

const exifIFDPointerTag = 0x8769

func readEXIF(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, exifReadLimit)
	n, err := f.Read(buf)
	if n == 0 && err != nil {
		return nil, err
	}
	buf = buf[:n]

	tiff, err := findTIFFBlock(buf)
	if err != nil {
		return nil, err
	}
	return parseTIFF(tiff)
}

// findTIFFBlock locates the TIFF header: the whole buffer for TIFF files,
// the APP1 payload for JPEG.
func findTIFFBlock(buf []byte) ([]byte, error) {
	if len(buf) >= 4 && (string(buf[:2]) == "II" || string(buf[:2]) == "MM") {
		return buf, nil
	}
	if len(buf) < 4 || buf[0] != 0xFF || buf[1] != 0xD8 {
		return nil, fmt.Errorf("not a jpeg or tiff")
	}

	off := 2
	for off+4 <= len(buf) {
		if buf[off] != 0xFF {
			break
		}
		marker := buf[off+1]
		if marker == 0xD8 || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) {
			off += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(buf[off+2 : off+4]))
		if segLen < 2 || off+2+segLen > len(buf) {
			break
		}
		if marker == 0xE1 {
			payload := buf[off+4 : off+2+segLen]
			if len(payload) > 6 && string(payload[:6]) == "Exif\x00\x00" {
				return payload[6:], nil
			}
		}
		if marker == 0xDA { // start of scan, no more metadata
			break
		}
		off += 2 + segLen
	}
	return nil, fmt.Errorf("no exif segment")
}

func parseTIFF(tiff []byte) (map[string]string, error) {
	if len(tiff) < 8 {
		return nil, fmt.Errorf("truncated tiff header")
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("bad tiff byte order")
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return nil, fmt.Errorf("bad tiff magic")
	}

	tags := make(map[string]string)
	ifd0 := order.Uint32(tiff[4:8])
	exifIFD := parseIFD(tiff, order, ifd0, tags)
	if exifIFD != 0 {
		parseIFD(tiff, order, exifIFD, tags)
	}
	return tags, nil
}

// parseIFD reads one IFD's allow-listed entries into tags and returns the
// Exif sub-IFD offset when present.
func parseIFD(tiff []byte, order binary.ByteOrder, offset uint32, tags map[string]string) uint32 {
	if int(offset)+2 > len(tiff) {
		return 0
	}
	count := int(order.Uint16(tiff[offset : offset+2]))
	var exifIFD uint32

	for i := 0; i < count; i++ {
		entry := int(offset) + 2 + i*12
		if entry+12 > len(tiff) {
			break
		}
		tag := order.Uint16(tiff[entry : entry+2])
		typ := order.Uint16(tiff[entry+2 : entry+4])
		n := order.Uint32(tiff[entry+4 : entry+8])

		if tag == exifIFDPointerTag && typ == 4 {
			exifIFD = order.Uint32(tiff[entry+8 : entry+12])
			continue
		}

		name, wanted := exifTagNames[tag]
		if !wanted {
			continue
		}

		switch typ {
		case 2: // ASCII
			var raw []byte
			if n <= 4 {
				raw = tiff[entry+8 : entry+8+int(n)]
			} else {
				start := order.Uint32(tiff[entry+8 : entry+12])
				if int(start)+int(n) > len(tiff) {
					continue
				}
				raw = tiff[start : start+n]
			}
			val := strings.TrimSpace(strings.TrimRight(string(raw), "\x00"))
			if val != "" {
				tags[name] = val
			}
		case 3: // SHORT
			if n >= 1 {
				tags[name] = strconv.Itoa(int(order.Uint16(tiff[entry+8 : entry+10])))
			}
		}
	}
	return exifIFD
}
