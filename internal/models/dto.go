package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

type JobType string

const (
	JobTypeSceneVideo JobType = "scene_video"
	JobTypeSceneAudio JobType = "scene_audio"
)

// Job is one media generation request as recorded in the job log.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    string     `json:"project_id"`
	SceneID      string     `json:"scene_id"`
	Type         JobType    `json:"type"`
	Status       JobStatus  `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DTOs for API responses

// SessionState is the transient state that is not persisted with projects.
type SessionState struct {
	Status              GenerationStatus `json:"status"`
	Error               string           `json:"error,omitempty"`
	DialogueMode        bool             `json:"dialogueMode"`
	RegeneratingSceneID string           `json:"regeneratingSceneId,omitempty"`
	IsSparking          bool             `json:"isSparking"`
	IsChatting          bool             `json:"isChatting"`
	IsFinalizing        bool             `json:"isFinalizing"`
	SyncingSceneID      string           `json:"syncingSceneId,omitempty"`
	IsSyncingOverture   bool             `json:"isSyncingOverture"`
}

type StateResponse struct {
	Version         uint64        `json:"version"`
	Projects        []Project     `json:"projects"`
	ActiveProjectID string        `json:"activeProjectId"`
	Chats           []ChatSession `json:"chats"`
	ActiveChatID    string        `json:"activeChatId"`
	Session         SessionState  `json:"session"`
}

type CreateProjectResponse struct {
	ProjectID string `json:"project_id"`
}

type RenameRequest struct {
	Name string `json:"name"`
}

type SelectRequest struct {
	ID string `json:"id"`
}

type ModeRequest struct {
	Mode GenerationMode `json:"mode"`
}

type BriefRequest struct {
	Brief string `json:"brief"`
}

type StyleRequest struct {
	Style DirectorStyle `json:"style"`
}

type SingleRequest struct {
	Prompt         *string     `json:"prompt,omitempty"`
	VideoModel     *VideoModel `json:"videoModel,omitempty"`
	ReferenceImage *BaseImage  `json:"referenceImage,omitempty"`
	ClearReference bool        `json:"clearReference,omitempty"`
}

type BackgroundRequest struct {
	Image *BaseImage `json:"image"`
}

type AddImageRequest struct {
	Image BaseImage  `json:"image"`
	Role  ObjectRole `json:"role"`
}

type RoleRequest struct {
	Role ObjectRole `json:"role"`
}

type OvertureRequest struct {
	Indonesian string `json:"indonesian"`
}

// SceneEditRequest updates scene text. With Sync set, the field named by
// LastEdited is translated into the other language before commit.
type SceneEditRequest struct {
	English    *string `json:"english,omitempty"`
	Indonesian *string `json:"indonesian,omitempty"`
	VoiceOver  *string `json:"voiceOver,omitempty"`
	Sync       bool    `json:"sync,omitempty"`
	LastEdited string  `json:"lastEdited,omitempty"` // "english" | "indonesian"
}

type ChatUpdateRequest struct {
	Title  *string `json:"title,omitempty"`
	Pinned *bool   `json:"pinned,omitempty"`
}

type ChatMessageRequest struct {
	Text string `json:"text"`
}

type DialogueRequest struct {
	Enabled bool `json:"enabled"`
}

type AcceptedResponse struct {
	JobID   uuid.UUID        `json:"job_id"`
	SceneID string           `json:"scene_id"`
	Status  GenerationStatus `json:"status"`
}
