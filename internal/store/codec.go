package store

import (
	"encoding/json"
	"fmt"

	"github.com/hireflow/interviewer/internal/interview"
)

func encodeJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(data), nil
}

func decodeJSON(raw string, out any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func jobFromRecord(record *JobRecord) (*interview.Job, error) {
	job := &interview.Job{
		ID:       record.ID,
		Title:    record.Title,
		RoleInfo: record.RoleInfo,
		Language: record.Language,
	}
	if err := decodeJSON(record.Questions, &job.Questions); err != nil {
		return nil, err
	}
	return job, nil
}

func sessionToRecord(session *interview.Session) (*SessionRecord, error) {
	record := &SessionRecord{
		ID:           session.ID,
		Candidate:    session.Candidate,
		JobID:        session.JobID,
		Started:      session.Started,
		CurrentIndex: session.CurrentIndex,
		Version:      session.Version,
		CompletedAt:  session.CompletedAt,
		CreatedAt:    session.CreatedAt,
	}

	var err error
	if record.Ledger, err = encodeJSON(session.Ledger); err != nil {
		return nil, err
	}
	if record.FollowUps, err = encodeJSON(session.FollowUps); err != nil {
		return nil, err
	}
	if record.NeedsReview, err = encodeJSON(session.NeedsReview); err != nil {
		return nil, err
	}
	if record.Processed, err = encodeJSON(session.Processed); err != nil {
		return nil, err
	}
	if record.Transcript, err = encodeJSON(session.Transcript); err != nil {
		return nil, err
	}
	return record, nil
}

func sessionFromRecord(record *SessionRecord) (*interview.Session, error) {
	session := &interview.Session{
		ID:           record.ID,
		Candidate:    record.Candidate,
		JobID:        record.JobID,
		Started:      record.Started,
		CurrentIndex: record.CurrentIndex,
		Version:      record.Version,
		CompletedAt:  record.CompletedAt,
		CreatedAt:    record.CreatedAt,
	}

	if err := decodeJSON(record.Ledger, &session.Ledger); err != nil {
		return nil, err
	}
	if err := decodeJSON(record.FollowUps, &session.FollowUps); err != nil {
		return nil, err
	}
	if err := decodeJSON(record.NeedsReview, &session.NeedsReview); err != nil {
		return nil, err
	}
	if err := decodeJSON(record.Processed, &session.Processed); err != nil {
		return nil, err
	}
	if err := decodeJSON(record.Transcript, &session.Transcript); err != nil {
		return nil, err
	}
	return session, nil
}

func submissionToRecord(submission *interview.Submission) (*SubmissionRecord, error) {
	record := &SubmissionRecord{
		ID:        submission.ID,
		SessionID: submission.SessionID,
		Candidate: submission.Candidate,
		JobID:     submission.JobID,
		Score:     submission.Score,
		Decision:  string(submission.Decision),
		Summary:   submission.Summary,
		CreatedAt: submission.CreatedAt,
	}

	var err error
	if record.Ledger, err = encodeJSON(submission.Ledger); err != nil {
		return nil, err
	}
	if record.Strengths, err = encodeJSON(submission.Strengths); err != nil {
		return nil, err
	}
	if record.Weaknesses, err = encodeJSON(submission.Weaknesses); err != nil {
		return nil, err
	}
	if record.NeedsReview, err = encodeJSON(submission.NeedsReview); err != nil {
		return nil, err
	}
	return record, nil
}

func submissionFromRecord(record *SubmissionRecord) (*interview.Submission, error) {
	submission := &interview.Submission{
		ID:        record.ID,
		SessionID: record.SessionID,
		Candidate: record.Candidate,
		JobID:     record.JobID,
		Score:     record.Score,
		Decision:  interview.Decision(record.Decision),
		Summary:   record.Summary,
		CreatedAt: record.CreatedAt,
	}

	if err := decodeJSON(record.Ledger, &submission.Ledger); err != nil {
		return nil, err
	}
	if err := decodeJSON(record.Strengths, &submission.Strengths); err != nil {
		return nil, err
	}
	if err := decodeJSON(record.Weaknesses, &submission.Weaknesses); err != nil {
		return nil, err
	}
	if err := decodeJSON(record.NeedsReview, &submission.NeedsReview); err != nil {
		return nil, err
	}
	return submission, nil
}
