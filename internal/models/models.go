package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums
type GenerationStatus string

const (
	StatusIdle       GenerationStatus = "IDLE"
	StatusGenerating GenerationStatus = "GENERATING"
	StatusSuccess    GenerationStatus = "SUCCESS"
	StatusError      GenerationStatus = "ERROR"
)

type GenerationMode string

const (
	ModeSingle     GenerationMode = "SINGLE"
	ModeStoryboard GenerationMode = "STORYBOARD"
)

func (m GenerationMode) Valid() bool {
	return m == ModeSingle || m == ModeStoryboard
}

type ObjectRole string

const (
	RolePerson ObjectRole = "PERSON"
	RoleProp   ObjectRole = "PROP"
)

func (r ObjectRole) Valid() bool {
	return r == RolePerson || r == RoleProp
}

type VideoModel string

const (
	VideoModelVeo2 VideoModel = "veo-2.0-generate-001"
	VideoModelVeo3 VideoModel = "veo-3.0-generate-preview"
)

func (v VideoModel) Valid() bool {
	return v == VideoModelVeo2 || v == VideoModelVeo3
}

type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

const (
	MaxObjectImages    = 5
	DefaultProjectName = "My First Project"
	DefaultChatTitle   = "New Chat"
)

// Images

// BaseImage is an uploaded image. Data is carried as base64 in JSON.
type BaseImage struct {
	ID       string `json:"id"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"base64"`
}

type StoryboardImage struct {
	BaseImage
	Role ObjectRole `json:"role"`
}

// Script

type BilingualText struct {
	English    string `json:"english"`
	Indonesian string `json:"indonesian"`
}

type Soundscape struct {
	Music string   `json:"music"`
	SFX   []string `json:"sfx"`
}

type Scene struct {
	ID                    string           `json:"id"`
	English               string           `json:"english"`
	Indonesian            string           `json:"indonesian"`
	VoiceOver             string           `json:"voiceOver_Indonesian,omitempty"`
	VideoURL              string           `json:"videoUrl,omitempty"`
	VideoGenerationStatus GenerationStatus `json:"videoGenerationStatus"`
	AudioURL              string           `json:"audioUrl,omitempty"`
	AudioGenerationStatus GenerationStatus `json:"audioGenerationStatus"`
}

// NewScene assigns a fresh id and idle media status.
func NewScene(english, indonesian, voiceOver string) Scene {
	return Scene{
		ID:                    uuid.New().String(),
		English:               english,
		Indonesian:            indonesian,
		VoiceOver:             voiceOver,
		VideoGenerationStatus: StatusIdle,
		AudioGenerationStatus: StatusIdle,
	}
}

// ResetMedia drops rendered video and audio. Called whenever scene text is
// replaced.
func (s *Scene) ResetMedia() {
	s.VideoURL = ""
	s.VideoGenerationStatus = StatusIdle
	s.AudioURL = ""
	s.AudioGenerationStatus = StatusIdle
}

// SetVideo moves the video status and keeps the URL only on SUCCESS.
func (s *Scene) SetVideo(status GenerationStatus, url string) {
	s.VideoGenerationStatus = status
	if status == StatusSuccess {
		s.VideoURL = url
	} else {
		s.VideoURL = ""
	}
}

// SetAudio moves the audio status and keeps the URL only on SUCCESS.
func (s *Scene) SetAudio(status GenerationStatus, url string) {
	s.AudioGenerationStatus = status
	if status == StatusSuccess {
		s.AudioURL = url
	} else {
		s.AudioURL = ""
	}
}

type GeneratedPrompts struct {
	Overture   BilingualText `json:"overture"`
	Scenes     []Scene       `json:"scenes"`
	Soundscape *Soundscape   `json:"soundscape,omitempty"`
}

// SceneIndex returns the position of the scene with the given id, or -1.
func (g *GeneratedPrompts) SceneIndex(id string) int {
	for i := range g.Scenes {
		if g.Scenes[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *GeneratedPrompts) Clone() *GeneratedPrompts {
	if g == nil {
		return nil
	}
	c := *g
	c.Scenes = append([]Scene(nil), g.Scenes...)
	if g.Soundscape != nil {
		sc := *g.Soundscape
		sc.SFX = append([]string(nil), g.Soundscape.SFX...)
		c.Soundscape = &sc
	}
	return &c
}

// Project is the unit of authoring work.
type Project struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CreatedAt int64          `json:"createdAt"` // unix millis
	Mode      GenerationMode `json:"mode"`

	// Single scene
	SinglePrompt         string     `json:"singlePrompt"`
	SingleReferenceImage *BaseImage `json:"singleReferenceImage"`
	GeneratedVideoURL    string     `json:"generatedVideoUrl,omitempty"`
	VideoModel           VideoModel `json:"videoModel"`

	// Storyboard
	MainBrief        string            `json:"mainBrief"`
	BackgroundImage  *BaseImage        `json:"backgroundImage"`
	ObjectImages     []StoryboardImage `json:"objectImages"`
	DirectorStyle    DirectorStyle     `json:"directorStyle"`
	GeneratedPrompts *GeneratedPrompts `json:"generatedPrompts"`
}

func NewProject(name string) Project {
	return Project{
		ID:            uuid.New().String(),
		Name:          name,
		CreatedAt:     time.Now().UnixMilli(),
		Mode:          ModeStoryboard,
		VideoModel:    VideoModelVeo2,
		ObjectImages:  []StoryboardImage{},
		DirectorStyle: StyleNone,
	}
}

// Clone copies everything a mutation could touch. Image bytes are shared;
// they are never modified in place.
func (p Project) Clone() Project {
	c := p
	c.ObjectImages = append([]StoryboardImage(nil), p.ObjectImages...)
	c.GeneratedPrompts = p.GeneratedPrompts.Clone()
	return c
}

// Chat

type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	History   []ChatMessage `json:"history"`
	IsPinned  bool          `json:"isPinned"`
	CreatedAt int64         `json:"createdAt"`
}

func NewChatSession() ChatSession {
	return ChatSession{
		ID:        uuid.New().String(),
		Title:     DefaultChatTitle,
		History:   []ChatMessage{},
		CreatedAt: time.Now().UnixMilli(),
	}
}

func (c ChatSession) Clone() ChatSession {
	cp := c
	cp.History = append([]ChatMessage(nil), c.History...)
	return cp
}

// UserMessageCount counts turns sent by the user.
func (c ChatSession) UserMessageCount() int {
	n := 0
	for _, m := range c.History {
		if m.Role == ChatRoleUser {
			n++
		}
	}
	return n
}
