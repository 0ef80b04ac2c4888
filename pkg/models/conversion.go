package models

// ConversionType is a small integer discriminant recording how a document's
// markdown content was produced. Values are stable and stored in the
// database: new values append, existing values are never renumbered.
type ConversionType int

const (
	// ConversionDirect stores native markdown verbatim.
	ConversionDirect ConversionType = 0
	// ConversionTextToMD wraps plain text with a title heading.
	ConversionTextToMD ConversionType = 1
	// ConversionCodeToMD wraps source code in a fenced code block.
	ConversionCodeToMD ConversionType = 2
	// ConversionStructuredToMD converts office/PDF documents.
	ConversionStructuredToMD ConversionType = 3
	// ConversionXMindToMD converts XMind mind maps to outlines.
	ConversionXMindToMD ConversionType = 4
	// ConversionImageToMD captions/OCRs images.
	ConversionImageToMD ConversionType = 5
	// ConversionVideoMetadata extracts video container metadata.
	ConversionVideoMetadata ConversionType = 6
	// ConversionHTMLToMD converts HTML pages.
	ConversionHTMLToMD ConversionType = 7
	// ConversionDrawioToMD converts draw.io diagrams to outlines.
	ConversionDrawioToMD ConversionType = 8
)

// String returns a human-readable tag for the conversion type.
func (t ConversionType) String() string {
	switch t {
	case ConversionDirect:
		return "direct"
	case ConversionTextToMD:
		return "text_to_md"
	case ConversionCodeToMD:
		return "code_to_md"
	case ConversionStructuredToMD:
		return "structured_to_md"
	case ConversionXMindToMD:
		return "xmind_to_md"
	case ConversionImageToMD:
		return "image_to_md"
	case ConversionVideoMetadata:
		return "video_metadata"
	case ConversionHTMLToMD:
		return "html_to_md"
	case ConversionDrawioToMD:
		return "drawio_to_md"
	default:
		return "unknown"
	}
}
