package greeter

import "fmt"

// FailureKind classifies what went wrong while processing a row.
type FailureKind int

const (
	// DownloadFailure: the photo could not be fetched; the fallback image
	// was used instead.
	DownloadFailure FailureKind = iota + 1
	// DecodeFailure: template or photo unreadable; the row was not composed.
	DecodeFailure
	// SaveFailure: the composed image could not be encoded or written.
	SaveFailure
	// UploadFailure: the image host did not return a URL; nothing was sent.
	UploadFailure
	// SendFailure: one gateway dispatch failed.
	SendFailure
)

func (k FailureKind) String() string {
	switch k {
	case DownloadFailure:
		return "download"
	case DecodeFailure:
		return "decode"
	case SaveFailure:
		return "save"
	case UploadFailure:
		return "upload"
	case SendFailure:
		return "send"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Failure is a stage error tied to the member being processed. Recipient is
// set for send failures.
type Failure struct {
	Kind      FailureKind `json:"kind"`
	Member    string      `json:"member"`
	Recipient string      `json:"recipient,omitempty"`
	Message   string      `json:"error"`
	Err       error       `json:"-"`
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s failure for %s", f.Kind, f.Member)
	if f.Recipient != "" {
		msg += " (" + f.Recipient + ")"
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }
