package store

import (
	"encoding/base64"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

const (
	metadataV1 uint64 = 1

	dateLayout = "2006-01-02"
)

var metadataEncoding = base64.RawURLEncoding

var (
	metadataEncMode cbor.EncMode
	metadataDecMode cbor.DecMode
)

func init() {
	var err error
	metadataEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	metadataDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// PostMetadata is the part of a post that lives in its props marker key.
type PostMetadata struct {
	Date      time.Time
	Title     string
	Published bool
}

type (
	metadataEnvelope struct {
		_       struct{} `cbor:",toarray"`
		Version uint64
		Payload cbor.RawMessage
	}
	metadataPayloadV1 struct {
		_         struct{} `cbor:",toarray"`
		Date      string
		Title     string
		Published bool
	}
)

// EncodeMetadata serializes m into a single path-safe key segment.
func EncodeMetadata(m PostMetadata) (string, error) {
	payload, err := metadataEncMode.Marshal(metadataPayloadV1{
		Date:      m.Date.UTC().Format(dateLayout),
		Title:     m.Title,
		Published: m.Published,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode metadata payload")
	}
	raw, err := metadataEncMode.Marshal(metadataEnvelope{Version: metadataV1, Payload: payload})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode metadata envelope")
	}
	return metadataEncoding.EncodeToString(raw), nil
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(token string) (PostMetadata, error) {
	raw, err := metadataEncoding.DecodeString(token)
	if err != nil {
		return PostMetadata{}, errors.Wrapf(ErrCorruptMetadata, "base64: %s", err)
	}
	var envelope metadataEnvelope
	if err := metadataDecMode.Unmarshal(raw, &envelope); err != nil {
		return PostMetadata{}, errors.Wrapf(ErrCorruptMetadata, "envelope: %s", err)
	}
	switch envelope.Version {
	case metadataV1:
		var payload metadataPayloadV1
		if err := metadataDecMode.Unmarshal(envelope.Payload, &payload); err != nil {
			return PostMetadata{}, errors.Wrapf(ErrCorruptMetadata, "v1 payload: %s", err)
		}
		date, err := time.Parse(dateLayout, payload.Date)
		if err != nil {
			return PostMetadata{}, errors.Wrapf(ErrCorruptMetadata, "v1 date: %s", err)
		}
		return PostMetadata{Date: date, Title: payload.Title, Published: payload.Published}, nil
	default:
		return PostMetadata{}, errors.Wrapf(ErrUnsupportedMetadataVersion, "version %d", envelope.Version)
	}
}
