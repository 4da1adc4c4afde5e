// Package ai streams chat responses from a model and turns generated
// outlines and uploaded PDFs into document blocks.
package ai

import (
	"context"
	"strings"
)

type EventType string

const (
	// EventMeta opens a stream and names the model that answers.
	EventMeta    EventType = "meta"
	EventThought EventType = "thought"
	EventContent EventType = "content"
	EventUsage   EventType = "usage"
)

type Usage struct {
	PromptTokens  int `json:"prompt_tokens"`
	OutputTokens  int `json:"output_tokens"`
	ThoughtTokens int `json:"thought_tokens,omitempty"`
	TotalTokens   int `json:"total_tokens"`
}

// Event is one step of a chat stream. Text is set for thought and content
// events, Usage for usage events.
type Event struct {
	Type  EventType `json:"type"`
	Model string    `json:"model,omitempty"`
	Text  string    `json:"text,omitempty"`
	Usage *Usage    `json:"usage,omitempty"`
}

// Attachment is a file sent along with the prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

type Request struct {
	Prompt      string
	Model       string
	Thinking    bool
	Attachments []Attachment
}

// Streamer delivers the events of one response to fn in order. Returning an
// error from fn stops the stream with that error.
type Streamer interface {
	Stream(ctx context.Context, req Request, fn func(Event) error) error
}

// Response is the sum of a stream.
type Response struct {
	Model   string
	Thought string
	Content string
	Usage   Usage
}

// Accumulator collects events into a Response.
type Accumulator struct {
	model   string
	thought strings.Builder
	content strings.Builder
	usage   Usage
}

func (a *Accumulator) Add(e Event) error {
	switch e.Type {
	case EventMeta:
		if e.Model != "" {
			a.model = e.Model
		}
	case EventThought:
		a.thought.WriteString(e.Text)
	case EventContent:
		a.content.WriteString(e.Text)
	case EventUsage:
		if e.Usage != nil {
			a.usage = *e.Usage
		}
	}
	return nil
}

func (a *Accumulator) Response() Response {
	return Response{
		Model:   a.model,
		Thought: a.thought.String(),
		Content: a.content.String(),
		Usage:   a.usage,
	}
}

// Collect runs a stream to completion and returns its sum.
func Collect(ctx context.Context, s Streamer, req Request) (Response, error) {
	var acc Accumulator
	err := s.Stream(ctx, req, acc.Add)
	return acc.Response(), err
}

// Tee calls every fn in order for each event and stops at the first error.
func Tee(fns ...func(Event) error) func(Event) error {
	return func(e Event) error {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	}
}
