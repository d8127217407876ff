package chatstream

// Kind identifies what a Content carries.
type Kind int

const (
	// KindText is a plain chat message.
	KindText Kind = iota
	// KindFile is a file attachment, e.g. generated music.
	KindFile
	// KindPhoto is an image attachment.
	KindPhoto
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFile:
		return "file"
	case KindPhoto:
		return "photo"
	default:
		return "unknown"
	}
}

// Trace records which command produced a Content.
type Trace struct {
	Source string
	Attrs  map[string]any
}

// Content is something a bot posts to a channel besides streamed text.
type Content interface {
	Kind() Kind
	Origin() Trace
}

// Upload is Content delivered as a single attached file.
type Upload interface {
	Content
	Upload() (name string, data []byte, caption string)
}

// Text is a one-off message. Longer text should go through a Sender.
type Text struct {
	Text  string
	Trace Trace
}

func (t *Text) Kind() Kind    { return KindText }
func (t *Text) Origin() Trace { return t.Trace }

// File is an attachment with an optional caption.
type File struct {
	FileName string
	FileData []byte
	Caption  string
	Trace    Trace
}

func (f *File) Kind() Kind    { return KindFile }
func (f *File) Origin() Trace { return f.Trace }

func (f *File) Upload() (string, []byte, string) {
	return f.FileName, f.FileData, f.Caption
}

// Photo is an image attachment; Width and Height are the decoded dimensions
// when known.
type Photo struct {
	FileName string
	FileData []byte
	Caption  string
	Width    int
	Height   int
	Trace    Trace
}

func (p *Photo) Kind() Kind    { return KindPhoto }
func (p *Photo) Origin() Trace { return p.Trace }

func (p *Photo) Upload() (string, []byte, string) {
	return p.FileName, p.FileData, p.Caption
}
