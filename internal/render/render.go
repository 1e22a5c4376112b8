package render

import (
	"fmt"
	"strings"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
)

// Render substitutes every placeholder token in tmpl with its value.
//
// Substitution happens in a single pass, so each occurrence of a token is
// replaced exactly once and substituted values are never re-scanned. Tokens
// missing from subs are left verbatim; leftover tokens in the output mean the
// caller supplied an incomplete substitution set.
func Render(tmpl string, subs map[string]string) string {
	if len(subs) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(subs)*2)
	for token, value := range subs {
		pairs = append(pairs, token, value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// AlertLink builds the deep link back to the recording in the originating
// system (the Blue Iris UI3 viewer).
func AlertLink(endpoint, dbID, camera string) string {
	return fmt.Sprintf("%s/ui3.htm?rec=%s&cam=%s&m=1", endpoint, dbID, camera)
}

// Substitutions returns the standard substitution set for one alert.
func Substitutions(a *alert.Alert, endpoint string) map[string]string {
	return map[string]string{
		"<CAMERA_NAME>":  a.CameraName,
		"<DETECTIONS>":   a.Detections,
		"<TIME>":         a.Time,
		"<ENDPOINT_URL>": AlertLink(endpoint, a.DBID, a.CameraName),
	}
}
