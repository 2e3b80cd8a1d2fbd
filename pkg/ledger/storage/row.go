package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jaretmartin/symtex/pkg/ledger"
)

// entryColumns is the column list shared by the SQL backends, in the
// order encodeEntry and scanEntry expect.
const entryColumns = `seq, id, event_type, category, severity, description,
	actor_type, actor_id, actor_name, actor_metadata,
	subject_kind, subject_id, subject_name,
	when_ts, space_id, project_id, component,
	reason, policy_id, request_id, ruleset_id, confidence,
	method, parameters, tools, model, steps, resource_usage,
	tags, evidence,
	content_hash, previous_hash, algorithm, hashed_at,
	flagged, flag_note, review_status`

const entryColumnCount = 37

// severityCaseSQL orders severities by rank instead of alphabetically.
const severityCaseSQL = `CASE severity
	WHEN 'debug' THEN 0
	WHEN 'info' THEN 1
	WHEN 'notice' THEN 2
	WHEN 'warning' THEN 3
	WHEN 'error' THEN 4
	WHEN 'critical' THEN 5
	ELSE -1 END`

// entryRow is the flattened SQL form of a ledger entry. JSON-valued
// columns hold "" when the source field is empty.
type entryRow struct {
	seq           int64
	id            string
	eventType     string
	category      string
	severity      string
	description   string
	actorType     string
	actorID       string
	actorName     string
	actorMetadata string
	subjectKind   string
	subjectID     string
	subjectName   string
	whenTS        int64
	spaceID       string
	projectID     string
	component     string
	reason        string
	policyID      string
	requestID     string
	rulesetID     string
	confidence    float64
	method        string
	parameters    string
	tools         string
	model         string
	steps         string
	resourceUsage string
	tags          string
	evidence      string
	contentHash   string
	previousHash  string
	algorithm     string
	hashedAt      int64
	flagged       bool
	flagNote      string
	reviewStatus  string
}

func encodeEntry(e *ledger.Entry) (*entryRow, error) {
	row := &entryRow{
		seq:          e.Seq,
		id:           e.ID,
		eventType:    string(e.EventType),
		category:     e.Category,
		severity:     string(e.Severity),
		description:  e.Description,
		actorType:    string(e.Who.Type),
		actorID:      e.Who.ID,
		actorName:    e.Who.Name,
		subjectKind:  e.What.Kind,
		subjectID:    e.What.ID,
		subjectName:  e.What.Name,
		whenTS:       e.When.UnixNano(),
		spaceID:      e.Where.SpaceID,
		projectID:    e.Where.ProjectID,
		component:    e.Where.Component,
		reason:       e.Why.Reason,
		policyID:     e.Why.PolicyID,
		requestID:    e.Why.RequestID,
		rulesetID:    e.Why.RuleSetID,
		confidence:   e.Why.Confidence,
		method:       e.How.Method,
		model:        e.How.Model,
		contentHash:  e.Crypto.ContentHash,
		previousHash: e.Crypto.PreviousHash,
		algorithm:    e.Crypto.Algorithm,
		hashedAt:     e.Crypto.HashedAt.UnixNano(),
		flagged:      e.Flagged,
		flagNote:     e.FlagNote,
		reviewStatus: string(e.ReviewStatus),
	}
	if row.reviewStatus == "" {
		row.reviewStatus = string(ledger.ReviewNone)
	}

	if len(e.Who.Metadata) > 0 {
		data, err := json.Marshal(e.Who.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal actor metadata: %w", err)
		}
		row.actorMetadata = string(data)
	}
	if len(e.How.Parameters) > 0 {
		data, err := json.Marshal(e.How.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal mechanism parameters: %w", err)
		}
		row.parameters = string(data)
	}
	if len(e.How.Tools) > 0 {
		data, err := json.Marshal(e.How.Tools)
		if err != nil {
			return nil, fmt.Errorf("marshal mechanism tools: %w", err)
		}
		row.tools = string(data)
	}
	if len(e.How.Steps) > 0 {
		data, err := json.Marshal(e.How.Steps)
		if err != nil {
			return nil, fmt.Errorf("marshal mechanism steps: %w", err)
		}
		row.steps = string(data)
	}
	if len(e.How.ResourceUsage) > 0 {
		data, err := json.Marshal(e.How.ResourceUsage)
		if err != nil {
			return nil, fmt.Errorf("marshal resource usage: %w", err)
		}
		row.resourceUsage = string(data)
	}
	if len(e.Tags) > 0 {
		data, err := json.Marshal(e.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		row.tags = string(data)
	}
	if len(e.Evidence) > 0 {
		data, err := json.Marshal(e.Evidence)
		if err != nil {
			return nil, fmt.Errorf("marshal evidence: %w", err)
		}
		row.evidence = string(data)
	}
	return row, nil
}

// args returns the row's values in entryColumns order.
func (r *entryRow) args() []interface{} {
	return []interface{}{
		r.seq, r.id, r.eventType, r.category, r.severity, r.description,
		r.actorType, r.actorID, r.actorName, r.actorMetadata,
		r.subjectKind, r.subjectID, r.subjectName,
		r.whenTS, r.spaceID, r.projectID, r.component,
		r.reason, r.policyID, r.requestID, r.rulesetID, r.confidence,
		r.method, r.parameters, r.tools, r.model, r.steps, r.resourceUsage,
		r.tags, r.evidence,
		r.contentHash, r.previousHash, r.algorithm, r.hashedAt,
		r.flagged, r.flagNote, r.reviewStatus,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(scanner rowScanner) (*ledger.Entry, error) {
	var row entryRow
	err := scanner.Scan(
		&row.seq, &row.id, &row.eventType, &row.category, &row.severity, &row.description,
		&row.actorType, &row.actorID, &row.actorName, &row.actorMetadata,
		&row.subjectKind, &row.subjectID, &row.subjectName,
		&row.whenTS, &row.spaceID, &row.projectID, &row.component,
		&row.reason, &row.policyID, &row.requestID, &row.rulesetID, &row.confidence,
		&row.method, &row.parameters, &row.tools, &row.model, &row.steps, &row.resourceUsage,
		&row.tags, &row.evidence,
		&row.contentHash, &row.previousHash, &row.algorithm, &row.hashedAt,
		&row.flagged, &row.flagNote, &row.reviewStatus,
	)
	if err != nil {
		return nil, err
	}

	entry := &ledger.Entry{
		ID:          row.id,
		Seq:         row.seq,
		EventType:   ledger.EventType(row.eventType),
		Category:    row.category,
		Severity:    ledger.Severity(row.severity),
		Description: row.description,
		Who: ledger.Actor{
			Type: ledger.ActorType(row.actorType),
			ID:   row.actorID,
			Name: row.actorName,
		},
		What: ledger.Subject{
			Kind: row.subjectKind,
			ID:   row.subjectID,
			Name: row.subjectName,
		},
		When: time.Unix(0, row.whenTS).UTC(),
		Where: ledger.Origin{
			SpaceID:   row.spaceID,
			ProjectID: row.projectID,
			Component: row.component,
		},
		Why: ledger.Rationale{
			Reason:     row.reason,
			PolicyID:   row.policyID,
			RequestID:  row.requestID,
			RuleSetID:  row.rulesetID,
			Confidence: row.confidence,
		},
		How: ledger.Mechanism{Method: row.method, Model: row.model},
		Crypto: ledger.CryptoRecord{
			ContentHash:  row.contentHash,
			PreviousHash: row.previousHash,
			Algorithm:    row.algorithm,
			HashedAt:     time.Unix(0, row.hashedAt).UTC(),
		},
		Flagged:      row.flagged,
		FlagNote:     row.flagNote,
		ReviewStatus: ledger.ReviewStatus(row.reviewStatus),
	}

	if row.actorMetadata != "" {
		if err := json.Unmarshal([]byte(row.actorMetadata), &entry.Who.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal actor metadata: %w", err)
		}
	}
	if row.parameters != "" {
		if err := json.Unmarshal([]byte(row.parameters), &entry.How.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal mechanism parameters: %w", err)
		}
	}
	if row.tools != "" {
		if err := json.Unmarshal([]byte(row.tools), &entry.How.Tools); err != nil {
			return nil, fmt.Errorf("unmarshal mechanism tools: %w", err)
		}
	}
	if row.steps != "" {
		if err := json.Unmarshal([]byte(row.steps), &entry.How.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal mechanism steps: %w", err)
		}
	}
	if row.resourceUsage != "" {
		if err := json.Unmarshal([]byte(row.resourceUsage), &entry.How.ResourceUsage); err != nil {
			return nil, fmt.Errorf("unmarshal resource usage: %w", err)
		}
	}
	if row.tags != "" {
		if err := json.Unmarshal([]byte(row.tags), &entry.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if row.evidence != "" {
		if err := json.Unmarshal([]byte(row.evidence), &entry.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}
	return entry, nil
}

// placeholderFunc yields the next SQL placeholder for the dialect.
type placeholderFunc func() string

func sqlitePlaceholders() placeholderFunc {
	return func() string { return "?" }
}

func postgresPlaceholders() placeholderFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}
}

func placeholderList(next placeholderFunc, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = next()
	}
	return strings.Join(parts, ", ")
}

// buildFilter translates a validated query into a WHERE clause (without
// the WHERE keyword) and its arguments. An empty clause means no filter.
func buildFilter(q ledger.Query, next placeholderFunc) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	addSet := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", column, placeholderList(next, len(values))))
		for _, v := range values {
			args = append(args, v)
		}
	}

	addSet("actor_type", actorTypeStrings(q.ActorTypes))
	addSet("category", q.Categories)
	addSet("severity", severityStrings(q.Severities))
	addSet("event_type", eventTypeStrings(q.EventTypes))

	if q.SpaceID != "" {
		conditions = append(conditions, "space_id = "+next())
		args = append(args, q.SpaceID)
	}
	if q.ProjectID != "" {
		conditions = append(conditions, "project_id = "+next())
		args = append(args, q.ProjectID)
	}
	if q.FlaggedOnly {
		conditions = append(conditions, "flagged = "+next())
		args = append(args, true)
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		p1, p2, p3 := next(), next(), next()
		conditions = append(conditions,
			fmt.Sprintf("(LOWER(description) LIKE %s OR LOWER(actor_name) LIKE %s OR LOWER(tags) LIKE %s)", p1, p2, p3))
		args = append(args, pattern, pattern, pattern)
	}
	if q.From != nil {
		conditions = append(conditions, "when_ts >= "+next())
		args = append(args, q.From.UnixNano())
	}
	if q.To != nil {
		conditions = append(conditions, "when_ts <= "+next())
		args = append(args, q.To.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

// orderClause translates the query's sort into an ORDER BY clause.
// Non-seq sorts get a seq tiebreak so pagination is stable.
func orderClause(q ledger.Query) string {
	direction := "ASC"
	if q.SortOrder == ledger.SortDesc {
		direction = "DESC"
	}

	switch q.SortBy {
	case ledger.SortByWhen:
		return fmt.Sprintf("ORDER BY when_ts %s, seq ASC", direction)
	case ledger.SortBySeverity:
		return fmt.Sprintf("ORDER BY %s %s, seq ASC", severityCaseSQL, direction)
	case ledger.SortByCategory:
		return fmt.Sprintf("ORDER BY category %s, seq ASC", direction)
	default:
		return fmt.Sprintf("ORDER BY seq %s", direction)
	}
}

func actorTypeStrings(values []ledger.ActorType) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func severityStrings(values []ledger.Severity) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func eventTypeStrings(values []ledger.EventType) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
