package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}
	if !strings.HasPrefix(subject, "feedback.") {
		return nil
	}

	var p FeedbackEventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	switch {
	case p.EventID == "":
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("event_id is required"))
	case p.FeedbackID <= 0:
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("feedback_id is required"))
	case p.To == "":
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("to is required"))
	}
	return nil
}
