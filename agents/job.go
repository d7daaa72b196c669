package agents

import (
	"context"
	"fmt"
	"time"

	"voiceagent/transport"
)

// JobContext carries everything an entrypoint needs to drive one call:
// the transport connecting it to the room, the façade session, and a
// cancellation context tied to the job's lifetime.
type JobContext struct {
	Room      transport.Transport
	RoomCfg   transport.Config
	Process   *JobProcess
	Session   *AgentSession
	UserData  map[string]interface{}
	Context   context.Context

	EntrypointFunc func(ctx *JobContext) error
}

// JobProcess tracks one dispatched job's status and timing.
type JobProcess struct {
	ID           string
	ExecutorType JobExecutorType
	UserData     map[string]interface{}
	StartTime    time.Time
	Status       JobStatus
}

type JobStatus int

const (
	JobStatusPending JobStatus = iota
	JobStatusRunning
	JobStatusCompleted
	JobStatusFailed
	JobStatusCancelled
)

type JobExecutorType int

const (
	JobExecutorThread JobExecutorType = iota
	JobExecutorProcess
)

// NewJobContext creates a job context ready for Connect.
func NewJobContext(ctx context.Context, cfg transport.Config) *JobContext {
	return &JobContext{
		RoomCfg:  cfg,
		Context:  ctx,
		UserData: make(map[string]interface{}),
		Process: &JobProcess{
			UserData:  make(map[string]interface{}),
			StartTime: time.Now(),
			Status:    JobStatusPending,
		},
	}
}

// Connect dials the LiveKit room named in RoomCfg and wires the
// resulting transport into both the job context and its session.
func (jc *JobContext) Connect(sampleRate int) error {
	if jc.RoomCfg.URL == "" {
		return fmt.Errorf("agents: connect: %w", ErrInvalidConfiguration)
	}
	t, err := transport.Connect(jc.Context, jc.RoomCfg, sampleRate, nil)
	if err != nil {
		return fmt.Errorf("agents: connect to room %q: %w", jc.RoomCfg.RoomName, err)
	}
	jc.Room = t
	if jc.Session != nil {
		jc.Session.Transport = t
	}
	return nil
}

// SetUserData sets user data on the job context.
func (jc *JobContext) SetUserData(key string, value interface{}) {
	jc.UserData[key] = value
}

// GetUserData gets user data from the job context.
func (jc *JobContext) GetUserData(key string) interface{} {
	return jc.UserData[key]
}

// UpdateStatus updates the job process status.
func (jp *JobProcess) UpdateStatus(status JobStatus) {
	jp.Status = status
}

// IsRunning returns true if the job is currently running.
func (jp *JobProcess) IsRunning() bool {
	return jp.Status == JobStatusRunning
}

// IsCompleted returns true if the job has reached a terminal status.
func (jp *JobProcess) IsCompleted() bool {
	return jp.Status == JobStatusCompleted || jp.Status == JobStatusFailed || jp.Status == JobStatusCancelled
}

// Duration returns how long the job has been running.
func (jp *JobProcess) Duration() time.Duration {
	return time.Since(jp.StartTime)
}
