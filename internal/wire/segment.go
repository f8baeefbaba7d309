package wire

// SegmentType is the message-content discriminator.
type SegmentType string

const (
	SegText   SegmentType = "text"
	SegAt     SegmentType = "at"
	SegImage  SegmentType = "image"
	SegReply  SegmentType = "reply"
	SegFace   SegmentType = "face"
	SegDice   SegmentType = "dice"
	SegRPS    SegmentType = "rps"
	SegFile   SegmentType = "file"
	SegVideo  SegmentType = "video"
	SegRecord SegmentType = "record"
)

// mediaSegmentTypes are the variants the media pipeline side-loads.
var mediaSegmentTypes = map[SegmentType]bool{
	SegImage:  true,
	SegVideo:  true,
	SegRecord: true,
	SegFile:   true,
}

// IsMedia reports whether t carries a file/url/local_path payload.
func (t SegmentType) IsMedia() bool { return mediaSegmentTypes[t] }

// SegmentData holds the union of fields used across segment types. Only
// the fields relevant to Type are populated; the rest stay zero.
//
// File is the outbound base64-or-URI payload. URL is present on inbound
// media segments and must never be sent upstream. LocalPath is filled in
// by the media pipeline and exists only in the journaled representation
// — it is never marshaled onto an outbound frame.
type SegmentData struct {
	Text string `json:"text,omitempty"`
	QQ   string `json:"qq,omitempty"`   // at: target user id, or "all"
	ID   string `json:"id,omitempty"`   // reply: message id; face: face id
	File string `json:"file,omitempty"` // outbound base64 or URI

	URL       string  `json:"url,omitempty"`        // inbound only
	LocalPath *string `json:"local_path,omitempty"` // journal only
}

// Segment is one element of a message's content array.
type Segment struct {
	Type SegmentType `json:"type"`
	Data SegmentData `json:"data"`
}

// StripForWire returns a copy of s with inbound-only and journal-only
// fields cleared, suitable for inclusion in an outbound action payload.
func (s Segment) StripForWire() Segment {
	s.Data.URL = ""
	s.Data.LocalPath = nil
	return s
}

// Text builds a text segment.
func Text(s string) Segment { return Segment{Type: SegText, Data: SegmentData{Text: s}} }

// At builds an at-mention segment. qq is a user id, or "all" for
// at-everyone.
func At(qq string) Segment { return Segment{Type: SegAt, Data: SegmentData{QQ: qq}} }

// Image builds an image segment from a base64 payload or URI.
func Image(file string) Segment { return Segment{Type: SegImage, Data: SegmentData{File: file}} }

// Reply builds a reply segment referencing a prior message id.
func Reply(messageID string) Segment { return Segment{Type: SegReply, Data: SegmentData{ID: messageID}} }

// Face builds a face/emoji segment by face id.
func Face(id string) Segment { return Segment{Type: SegFace, Data: SegmentData{ID: id}} }

// Dice builds a dice-roll segment.
func Dice() Segment { return Segment{Type: SegDice} }

// RPS builds a rock-paper-scissors segment.
func RPS() Segment { return Segment{Type: SegRPS} }

// File builds a file segment from a base64 payload or URI.
func File(file string) Segment { return Segment{Type: SegFile, Data: SegmentData{File: file}} }

// Video builds a video segment from a base64 payload or URI.
func Video(file string) Segment { return Segment{Type: SegVideo, Data: SegmentData{File: file}} }

// Record builds a voice-record segment from a base64 payload or URI.
func Record(file string) Segment { return Segment{Type: SegRecord, Data: SegmentData{File: file}} }
