package policy

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// LoaderConfig controls how policy documents are read from disk.
type LoaderConfig struct {
	// MaxFileSize is the maximum document size in bytes (default: 5MB)
	MaxFileSize int64

	// AllowedExtensions lists the file extensions treated as policy documents
	AllowedExtensions []string

	// SkipHidden controls whether hidden files and directories are skipped
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:       5 * 1024 * 1024,
		AllowedExtensions: []string{".yaml", ".yml"},
		SkipHidden:        true,
	}
}

// Loader reads policy documents from the file system. A document holds a
// `policies:` list; every policy is validated before the batch is returned.
type Loader struct {
	config *LoaderConfig
}

// NewLoader creates a policy loader. A nil config uses the defaults.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{config: config}
}

// policyFile is the top-level YAML shape of a policy document.
type policyFile struct {
	Policies []*Policy `yaml:"policies"`
}

// Load reads policies from a file or directory path.
func (l *Loader) Load(path string) ([]*Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "path does not exist", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access path", Cause: err}
	}

	if info.IsDir() {
		return l.LoadDirectory(path)
	}

	return l.LoadFile(path)
}

// LoadFile reads and validates all policies in a single document.
func (l *Loader) LoadFile(path string) ([]*Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		if os.IsPermission(err) {
			return nil, &LoadError{FilePath: path, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}

	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}

	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	return l.LoadBytes(data, path)
}

// LoadBytes parses and validates a policy document from memory.
// sourcePath appears in error messages only.
func (l *Loader) LoadBytes(data []byte, sourcePath string) ([]*Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc policyFile
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{FilePath: sourcePath, Message: "YAML parsing failed", Cause: err}
	}

	if len(doc.Policies) == 0 {
		return nil, &LoadError{FilePath: sourcePath, Message: "document declares no policies"}
	}

	errList := &ErrorList{}
	for i, p := range doc.Policies {
		applyDefaults(p)
		if err := validatePolicy(p, i); err != nil {
			errList.Add(err)
		}
	}
	if err := errList.ToError(); err != nil {
		return nil, err
	}

	return doc.Policies, nil
}

// LoadDirectory reads every policy document under dir recursively.
// One bad file fails the whole load: a partial policy set is worse than
// none during startup or reload.
func (l *Loader) LoadDirectory(dir string) ([]*Policy, error) {
	files, err := l.collectFiles(dir)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, &LoadError{FilePath: dir, Message: "no policy files found in directory"}
	}

	var policies []*Policy
	errList := &ErrorList{}
	seen := make(map[string]string)

	for _, path := range files {
		loaded, err := l.LoadFile(path)
		if err != nil {
			errList.Add(err)
			continue
		}
		for _, p := range loaded {
			if prev, ok := seen[p.ID]; ok {
				errList.Add(&ValidationError{
					PolicyID: p.ID,
					Message:  fmt.Sprintf("duplicate policy ID (also defined in %q)", prev),
				})
				continue
			}
			seen[p.ID] = path
			policies = append(policies, p)
		}
	}

	if err := errList.ToError(); err != nil {
		return nil, err
	}

	return policies, nil
}

// collectFiles gathers policy file paths under dir, filtered by extension.
func (l *Loader) collectFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		for _, allowed := range l.config.AllowedExtensions {
			if ext == strings.ToLower(allowed) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}

	return files, nil
}

// applyDefaults fills in the fields a document may omit.
func applyDefaults(p *Policy) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.RiskLevel == "" {
		p.RiskLevel = RiskLow
	}
	if !p.ApprovalRequired && p.Effect == "" {
		p.Effect = EffectAllow
	}
}

// validatePolicy checks one policy document for constructs the evaluator
// cannot act on. index is the policy's position in the file.
func validatePolicy(p *Policy, index int) error {
	id := p.ID
	if id == "" {
		id = fmt.Sprintf("policies[%d]", index)
	}

	if p.Name == "" {
		return &ValidationError{PolicyID: id, FieldPath: "name", Message: "missing required field 'name'"}
	}

	if !p.RiskLevel.IsValid() {
		return &ValidationError{
			PolicyID:  id,
			FieldPath: "risk_level",
			Message:   fmt.Sprintf("unknown risk level %q (want low, medium, high, or critical)", p.RiskLevel),
		}
	}

	if !p.ApprovalRequired && !p.Effect.IsValid() {
		return &ValidationError{
			PolicyID:  id,
			FieldPath: "effect",
			Message:   fmt.Sprintf("unknown effect %q (want allow or deny)", p.Effect),
		}
	}

	if len(p.Scopes) == 0 {
		return &ValidationError{PolicyID: id, FieldPath: "scopes", Message: "policy declares no scopes"}
	}
	for i, scope := range p.Scopes {
		if !scope.Kind.IsValid() {
			return &ValidationError{
				PolicyID:  id,
				FieldPath: fmt.Sprintf("scopes[%d].kind", i),
				Message:   fmt.Sprintf("unknown scope kind %q", scope.Kind),
			}
		}
		if scope.Kind != ScopeGlobal && scope.ID == "" {
			return &ValidationError{
				PolicyID:  id,
				FieldPath: fmt.Sprintf("scopes[%d].id", i),
				Message:   fmt.Sprintf("%s scope requires an id", scope.Kind),
			}
		}
	}

	if len(p.Triggers) == 0 {
		return &ValidationError{PolicyID: id, FieldPath: "triggers", Message: "policy declares no triggers"}
	}
	for i, trigger := range p.Triggers {
		if err := validateTrigger(id, i, trigger); err != nil {
			return err
		}
	}

	if p.ApprovalRequired && len(p.Approvers) == 0 {
		return &ValidationError{
			PolicyID:  id,
			FieldPath: "approvers",
			Message:   "approval_required policy declares no approvers",
		}
	}

	for i, approver := range p.Approvers {
		if !approver.Kind.IsValid() {
			return &ValidationError{
				PolicyID:  id,
				FieldPath: fmt.Sprintf("approvers[%d].kind", i),
				Message:   fmt.Sprintf("unknown approver kind %q", approver.Kind),
			}
		}
	}

	lastLevel := 0
	for i, esc := range p.Escalation {
		if esc.Level <= lastLevel {
			return &ValidationError{
				PolicyID:  id,
				FieldPath: fmt.Sprintf("escalation[%d].level", i),
				Message:   fmt.Sprintf("escalation levels must ascend, got %d after %d", esc.Level, lastLevel),
			}
		}
		if len(esc.Approvers) == 0 && !esc.NotifyOnly {
			return &ValidationError{
				PolicyID:  id,
				FieldPath: fmt.Sprintf("escalation[%d].approvers", i),
				Message:   "escalation level declares no approvers",
			}
		}
		lastLevel = esc.Level
	}

	return nil
}

// validateTrigger checks one trigger variant.
func validateTrigger(policyID string, index int, t TriggerSpec) error {
	path := fmt.Sprintf("triggers[%d]", index)

	if !t.Kind.IsValid() {
		return &ValidationError{
			PolicyID:  policyID,
			FieldPath: path + ".kind",
			Message:   fmt.Sprintf("unknown trigger kind %q", t.Kind),
		}
	}

	switch t.Kind {
	case TriggerActionType:
		if len(t.ActionTypes) == 0 {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".action_types",
				Message:   "action_type trigger declares no action types",
			}
		}

	case TriggerCondition:
		if t.Condition == nil {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".condition",
				Message:   "condition trigger declares no predicate",
			}
		}
		if t.Condition.Field == "" || t.Condition.Operator == "" {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".condition",
				Message:   "condition predicate requires field and operator",
			}
		}

	case TriggerThreshold:
		if t.Metric == "" {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".metric",
				Message:   "threshold trigger declares no metric",
			}
		}
		if !t.Operator.IsValid() {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".operator",
				Message:   fmt.Sprintf("unknown threshold operator %q", t.Operator),
			}
		}
		if t.Operator == ThresholdBetween && t.UpperValue <= t.Value {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".upper_value",
				Message:   "between requires upper_value greater than value",
			}
		}

	case TriggerSchedule:
		if t.Cron == "" {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".cron",
				Message:   "schedule trigger declares no cron expression",
			}
		}

	case TriggerEvent:
		if t.Event == "" {
			return &ValidationError{
				PolicyID:  policyID,
				FieldPath: path + ".event",
				Message:   "event trigger declares no event name",
			}
		}
	}

	return nil
}
