package alert

// Alert is the canonical record of one inbound detection event.
//
// An Alert is built once by the ingestion layer and then shared read-only with
// every delivery worker: no field is ever written after construction, so it is
// safe to read concurrently without synchronization.
type Alert struct {
	// Target is interpreted by the consuming destination: a Discord channel
	// id, a Telegram chat id, a Matrix room id.
	Target string

	CameraName string
	Detections string

	// DBID identifies the recording in the originating system and is used to
	// build the deep link back to it.
	DBID string

	// Time is the producer-formatted timestamp. It is passed through verbatim.
	Time string

	// Image holds the raw (already base64-decoded) snapshot bytes. May be empty.
	Image []byte
}
