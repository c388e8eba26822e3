package domain

import "encoding/json"

// MediaKind is the kind of a submitted update as reported by the bot.
type MediaKind int

const (
	MediaUnknown MediaKind = iota
	MediaText
	MediaPhoto
	MediaVoice
	MediaVideo
	MediaAnimation
	MediaAudio
	MediaVideoNote
)

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mediaKindNames = map[MediaKind]string{
	MediaUnknown:   "unknown",
	MediaText:      "text",
	MediaPhoto:     "photo",
	MediaVoice:     "voice",
	MediaVideo:     "video",
	MediaAnimation: "animation",
	MediaAudio:     "audio",
	MediaVideoNote: "video_note",
}

// ParseMediaKind maps a wire name to a MediaKind. Unrecognized names are MediaUnknown.
func ParseMediaKind(name string) MediaKind {
	for kind, kindName := range mediaKindNames {
		if kind != MediaUnknown && kindName == name {
			return kind
		}
	}

	return MediaUnknown
}

func (k MediaKind) String() string {
	if name, ok := mediaKindNames[k]; ok {
		return name
	}

	return mediaKindNames[MediaUnknown]
}

func (k MediaKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MediaKind) UnmarshalText(text []byte) error {
	*k = ParseMediaKind(string(text))
	return nil
}

// MediaView describes how a media attachment is rendered. A nil MediaView means no media.
// It is implemented by PlaybackView and ImageView only.
type MediaView interface {
	isMediaView()
}

// PlaybackView is rendered as a video element.
type PlaybackView struct {
	Source   string    `json:"source"`
	Kind     MediaKind `json:"kind"`
	Autoplay bool      `json:"autoplay"`
	Controls bool      `json:"controls"`
	Loop     bool      `json:"loop"`
}

// ImageView is rendered as a still image of fixed height.
type ImageView struct {
	Source string `json:"source"`
	Alt    string `json:"alt"`
	Height int    `json:"height"`
}

func (PlaybackView) isMediaView() {}
func (ImageView) isMediaView()    {}

func (v PlaybackView) MarshalJSON() ([]byte, error) {
	type plain PlaybackView

	return json.Marshal(struct {
		View string `json:"view"`
		plain
	}{View: "playback", plain: plain(v)})
}

func (v ImageView) MarshalJSON() ([]byte, error) {
	type plain ImageView

	return json.Marshal(struct {
		View string `json:"view"`
		plain
	}{View: "image", plain: plain(v)})
}
