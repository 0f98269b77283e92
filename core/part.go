package core

// Part represents a polymorphic segment of a structured assistant response.
// Concrete part types implement the unexported isPart marker enabling a
// closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// CodePart is a code segment the completion collaborator executed remotely.
type CodePart struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (CodePart) isPart() {}

// CodeResultPart is the captured output of an executed code segment.
type CodeResultPart struct {
	Output string `json:"output"`
	OK     bool   `json:"ok"`
}

func (CodeResultPart) isPart() {}

// ImagePart is an inline image segment (e.g. a rendered plot).
type ImagePart struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
}

func (ImagePart) isPart() {}
