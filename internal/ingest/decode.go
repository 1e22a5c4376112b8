package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
)

// requiredFields lists the wire fields every alert message must carry, in
// diagnostic order.
var requiredFields = [...]string{"target", "camera", "detections", "db_id", "time", "image"}

// Decode parses one broker message into a normalized alert. All six fields
// are required strings; a missing or wrong-typed field is reported as
// "Missing 'X' field". The image is base64 in transit and raw bytes in the
// alert. Unknown top-level fields are ignored. A malformed message is
// rejected with a diagnostic naming what is wrong; it never reaches the
// dispatcher.
func Decode(data []byte) (*alert.Alert, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid alert json: %w", err)
	}

	fields := make(map[string]string, len(requiredFields))
	for _, name := range requiredFields {
		s, ok := raw[name].(string)
		if !ok {
			return nil, fmt.Errorf("Missing '%s' field", name)
		}
		fields[name] = s
	}

	img, err := base64.StdEncoding.DecodeString(fields["image"])
	if err != nil {
		return nil, fmt.Errorf("invalid 'image' field: %w", err)
	}

	return &alert.Alert{
		Target:     fields["target"],
		CameraName: fields["camera"],
		Detections: fields["detections"],
		DBID:       fields["db_id"],
		Time:       fields["time"],
		Image:      img,
	}, nil
}
