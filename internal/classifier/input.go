package classifier

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/webp"
)

// MaxPayloadBytes is the largest accepted image payload.
const MaxPayloadBytes = 20 << 20

// InlineReference is the image reference recorded for inline payloads.
const InlineReference = "inline"

const msgEmptyImage = "Empty image data"

// MsgImageTooLarge is the validation message for payloads over MaxPayloadBytes.
const MsgImageTooLarge = "Image data too large (max 20MB)"

// InputKind tells how an ImageInput carries the image.
type InputKind int

const (
	InputBytes     InputKind = iota + 1 // raw image bytes
	InputEncoded                        // base64 text, optionally a data URL
	InputPath                           // local filesystem path
	InputReference                      // remote object URI, such as gs:// or https://
)

func (k InputKind) String() string {
	switch k {
	case InputBytes:
		return "bytes"
	case InputEncoded:
		return "encoded"
	case InputPath:
		return "path"
	case InputReference:
		return "reference"
	default:
		return "unknown"
	}
}

// ImageInput is an image as received from the transport layer.
type ImageInput struct {
	Kind    InputKind
	Data    []byte
	Encoded string
	Path    string
	URI     string
}

// FromBytes wraps raw image bytes.
func FromBytes(data []byte) ImageInput { return ImageInput{Kind: InputBytes, Data: data} }

// FromEncoded wraps base64 text or a data URL.
func FromEncoded(s string) ImageInput { return ImageInput{Kind: InputEncoded, Encoded: s} }

// FromPath wraps a local file path.
func FromPath(path string) ImageInput { return ImageInput{Kind: InputPath, Path: path} }

// FromReference wraps a remote object URI.
func FromReference(uri string) ImageInput { return ImageInput{Kind: InputReference, URI: uri} }

// remoteSchemes are the URI prefixes FromLocation treats as references.
var remoteSchemes = []string{"gs://", "http://", "https://"}

// FromLocation returns a reference input for gs:// and http(s) URIs and a
// path input for anything else.
func FromLocation(loc string) ImageInput {
	loc = strings.TrimSpace(loc)
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(loc, scheme) {
			return FromReference(loc)
		}
	}
	return FromPath(loc)
}

// Payload is a validated ImageInput ready for a provider.
// Data is set for byte and encoded inputs; Path and URI for the others.
type Payload struct {
	Kind   InputKind
	Data   []byte
	Path   string
	URI    string
	Size   int64
	Format string // sniffed image format, "unknown" when not recognised
}

// Source is the value sent to backends that accept an image location.
func (p *Payload) Source() string {
	switch p.Kind {
	case InputPath:
		return p.Path
	case InputReference:
		return p.URI
	default:
		return InlineReference
	}
}

// Bytes returns the image content, reading it from disk for path inputs.
func (p *Payload) Bytes() ([]byte, error) {
	switch p.Kind {
	case InputBytes, InputEncoded:
		return p.Data, nil
	case InputPath:
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return nil, fmt.Errorf("read image file: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%s input has no local content", p.Kind)
	}
}

// ValidationFailure describes why an input was rejected before dispatch.
type ValidationFailure struct {
	Message string
}

func (v *ValidationFailure) Error() string { return v.Message }

// Prepare validates in and decodes inline encodings. It performs no network I/O.
func Prepare(in ImageInput) (*Payload, error) {
	switch in.Kind {
	case InputBytes:
		return prepareBytes(InputBytes, in.Data)

	case InputEncoded:
		data, err := decodeInline(in.Encoded)
		if err != nil {
			return nil, err
		}
		return prepareBytes(InputEncoded, data)

	case InputPath:
		return preparePath(in.Path)

	case InputReference:
		uri := strings.TrimSpace(in.URI)
		if uri == "" {
			return nil, &ValidationFailure{Message: "Empty image reference"}
		}
		return &Payload{Kind: InputReference, URI: uri, Format: "unknown"}, nil

	default:
		return nil, &ValidationFailure{Message: "image_data or image_path is required"}
	}
}

func prepareBytes(kind InputKind, data []byte) (*Payload, error) {
	if len(data) == 0 {
		return nil, &ValidationFailure{Message: msgEmptyImage}
	}
	if len(data) > MaxPayloadBytes {
		return nil, &ValidationFailure{Message: MsgImageTooLarge}
	}
	return &Payload{
		Kind:   kind,
		Data:   data,
		Size:   int64(len(data)),
		Format: sniffFormat(bytes.NewReader(data)),
	}, nil
}

func preparePath(path string) (*Payload, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ValidationFailure{Message: "Empty image path"}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &ValidationFailure{Message: fmt.Sprintf("Image file not readable: %s", path)}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return nil, &ValidationFailure{Message: fmt.Sprintf("Image file not readable: %s", path)}
	}
	if info.Size() == 0 {
		return nil, &ValidationFailure{Message: msgEmptyImage}
	}
	if info.Size() > MaxPayloadBytes {
		return nil, &ValidationFailure{Message: MsgImageTooLarge}
	}
	return &Payload{
		Kind:   InputPath,
		Path:   path,
		Size:   info.Size(),
		Format: sniffFormat(f),
	}, nil
}

// decodeInline strips a data URL header ("data:image/png;base64,") and
// decodes the remaining base64 text.
func decodeInline(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
	}
	if s == "" {
		return nil, &ValidationFailure{Message: msgEmptyImage}
	}
	// Reject before decoding anything that cannot fit the ceiling
	if base64.StdEncoding.DecodedLen(len(s)) > MaxPayloadBytes+2 {
		return nil, &ValidationFailure{Message: MsgImageTooLarge}
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, &ValidationFailure{Message: fmt.Sprintf("Invalid base64 data: %v", err)}
		}
	}
	return data, nil
}

func sniffFormat(r io.Reader) string {
	_, format, err := image.DecodeConfig(r)
	if err != nil {
		return "unknown"
	}
	return format
}
