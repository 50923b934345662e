package tasks

import "encoding/json"

// Queue names, one per pipeline stage. Each handler finishes by pushing the
// next queue's payload, so a session always moves through them in order.
const (
	// QueueScript is the first step: generate the narration script and
	// search keywords.
	QueueScript = "q_session_script"

	// QueueFootage is the second step: fetch stock clips per keyword.
	QueueFootage = "q_session_footage"

	// QueueNarration is the third step: synthesize the voiceover.
	QueueNarration = "q_session_narration"

	// QueueAssemble is the final step: plan the timeline and render.
	QueueAssemble = "q_session_assemble"
)

// SessionTaskPayload is the payload for every stage queue; each stage reads
// its inputs from the session record and storage, not from the payload.
type SessionTaskPayload struct {
	SessionID string `json:"session_id"`
}

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
