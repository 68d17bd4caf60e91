// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package recovery classifies failed season operations, runs the
// automatic remedy for each class and keeps an audit trail of attempts.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AccelByte/extend-season-pass/pkg/backup"
	"github.com/AccelByte/extend-season-pass/pkg/fault"
	"github.com/AccelByte/extend-season-pass/pkg/metrics"
	"github.com/sirupsen/logrus"
)

const auditTimestamp = "2006-01-02_15-04-05"

// Rollbacker restores live data from a backup.
type Rollbacker interface {
	Restore(ctx context.Context, rec *backup.Record) error
}

// Preserver captures the premium set again.
type Preserver interface {
	Preserve(ctx context.Context, seasonNumber int) (int, error)
}

// Incident is one failure handed to the advisor.
type Incident struct {
	Operation    string
	OperationID  string
	Err          error
	Backup       *backup.Record
	SeasonNumber int
}

// Attempt is the outcome of handling an incident. It is also the audit record.
type Attempt struct {
	Operation     string     `json:"operation"`
	OperationID   string     `json:"operationId,omitempty"`
	Kind          fault.Kind `json:"kind"`
	Error         string     `json:"error"`
	At            time.Time  `json:"timestamp"`
	Recovered     bool       `json:"recovered"`
	Message       string     `json:"message,omitempty"`
	Actions       []string   `json:"recoveryActions,omitempty"`
	Suggestions   []string   `json:"suggestions,omitempty"`
	BackupPath    string     `json:"backupPath,omitempty"`
	Preserved     int        `json:"preserved,omitempty"`
	RollbackError string     `json:"rollbackError,omitempty"`

	// AuditPath is where the attempt was written, empty when auditing failed.
	AuditPath string `json:"-"`
}

// Advisor handles failures of season operations.
type Advisor struct {
	rollback  Rollbacker
	preserver Preserver
	auditDir  string
	now       func() time.Time
}

// NewAdvisor creates an advisor. rollback and preserver may be nil, in
// which case the matching remedies report manual action instead.
func NewAdvisor(rollback Rollbacker, preserver Preserver, auditDir string) *Advisor {
	return &Advisor{
		rollback:  rollback,
		preserver: preserver,
		auditDir:  auditDir,
		now:       time.Now,
	}
}

// Handle classifies inc.Err, runs its remedy and records the attempt.
func (a *Advisor) Handle(ctx context.Context, inc Incident) *Attempt {
	att := &Attempt{
		Operation:   inc.Operation,
		OperationID: inc.OperationID,
		Kind:        classify(inc.Err),
		At:          a.now().UTC(),
		Suggestions: suggestionsFor(inc.Err),
	}
	if inc.Err != nil {
		att.Error = inc.Err.Error()
	}
	if inc.Backup != nil {
		att.BackupPath = inc.Backup.Path
	}

	logrus.Errorf("season operation %s failed (%s): %v", inc.Operation, att.Kind, inc.Err)

	switch att.Kind {
	case fault.KindBackup:
		a.handleBackup(att)
	case fault.KindPreservation:
		a.handlePreservation(ctx, inc, att)
	case fault.KindProgressReset:
		a.handleProgressReset(ctx, inc, att)
	case fault.KindRestoration:
		a.handleRestoration(att)
	default:
		a.handleGeneric(att)
	}

	metrics.RecoveryAttempts.WithLabelValues(string(att.Kind), strconv.FormatBool(att.Recovered)).Inc()

	if path, err := a.audit(att); err != nil {
		logrus.Errorf("failed to write error audit log: %v", err)
	} else {
		att.AuditPath = path
	}
	return att
}

func classify(err error) fault.Kind {
	switch k := fault.KindOf(err); k {
	case fault.KindBackup, fault.KindPreservation, fault.KindProgressReset, fault.KindRestoration:
		return k
	}
	return fault.KindGeneric
}

func (a *Advisor) handleBackup(att *Attempt) {
	att.Message = "Backup failed, no data was changed"
	att.Actions = []string{
		"Check available disk space",
		"Verify backup directory permissions",
		"Retry backup operation",
	}
}

func (a *Advisor) handlePreservation(ctx context.Context, inc Incident, att *Attempt) {
	att.Actions = []string{
		"Skip premium preservation",
		"Manually restore premium status after reset",
	}
	if a.preserver == nil {
		att.Message = "Premium preservation failed"
		return
	}
	n, err := a.preserver.Preserve(ctx, inc.SeasonNumber)
	if err != nil {
		att.Message = "Premium preservation retry failed: " + err.Error()
		att.Actions = append([]string{"Use SYNC_EXTERNAL for restoration"}, att.Actions...)
		return
	}
	att.Recovered = true
	att.Preserved = n
	att.Message = fmt.Sprintf("Preserved %d premium players on retry", n)
	logrus.Infof("premium preservation recovered on retry with %d players", n)
}

func (a *Advisor) handleProgressReset(ctx context.Context, inc Incident, att *Attempt) {
	if inc.Backup == nil {
		att.Message = "Progress reset failed without a backup"
		att.Actions = []string{"No backup available - manual intervention required"}
		return
	}
	if err := a.Rollback(ctx, inc.Backup); err != nil {
		att.RollbackError = err.Error()
		att.Message = "Rollback failed, live data may be partially reset"
		att.Actions = []string{
			"Manual data restoration required from " + inc.Backup.Path,
			"Contact system administrator",
		}
		logrus.Errorf("CRITICAL: rollback from %s failed: %v", inc.Backup.Path, err)
		return
	}
	att.Recovered = true
	att.Message = "Rolled back to backup after progress reset failure"
}

func (a *Advisor) handleRestoration(att *Attempt) {
	att.Recovered = true
	att.Message = "Season started but premium restoration failed - manual restoration required"
	att.Actions = []string{
		"Premium status can be restored manually later",
		"Players can be granted premium individually",
	}
}

func (a *Advisor) handleGeneric(att *Attempt) {
	att.Actions = []string{
		"Check server logs for detailed error information",
		"Verify system configuration",
		"Contact system administrator if problem persists",
	}
}

// Rollback restores live data from rec.
func (a *Advisor) Rollback(ctx context.Context, rec *backup.Record) error {
	if a.rollback == nil {
		return errors.New("no rollback target configured")
	}
	if rec == nil {
		return errors.New("no backup to roll back to")
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return fmt.Errorf("backup directory does not exist: %s", rec.Path)
	}
	logrus.Infof("initiating rollback from backup %s", rec.Path)
	if err := a.rollback.Restore(ctx, rec); err != nil {
		return fmt.Errorf("failed to restore backup %s: %w", rec.ID, err)
	}
	logrus.Infof("rollback from backup %s completed", rec.Path)
	return nil
}

func suggestionsFor(err error) []string {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	var out []string
	if strings.Contains(msg, "disk space") || strings.Contains(msg, "no space") {
		out = append(out, "Free up disk space or use external storage")
	}
	if strings.Contains(msg, "permission") {
		out = append(out, "Check file system permissions")
	}
	if strings.Contains(msg, "directory") {
		out = append(out, "Verify directory structure and accessibility")
	}
	if strings.Contains(msg, "configuration") || strings.Contains(msg, "config") {
		out = append(out, "Review and fix configuration settings")
	}
	return out
}

func (a *Advisor) audit(att *Attempt) (string, error) {
	if a.auditDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(a.auditDir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(att, "", "  ")
	if err != nil {
		return "", err
	}

	op := strings.NewReplacer("/", "_", " ", "_").Replace(att.Operation)
	base := fmt.Sprintf("error_%s_%s", op, att.At.Local().Format(auditTimestamp))
	for n := 1; ; n++ {
		name := base + ".json"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.json", base, n)
		}
		path := filepath.Join(a.auditDir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		return path, werr
	}
}

// ReadAudit returns every recorded attempt, oldest first.
func ReadAudit(dir string) ([]Attempt, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Attempt
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "error_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var att Attempt
		if err := json.Unmarshal(data, &att); err != nil {
			logrus.Warnf("skipping unreadable audit record %s: %v", e.Name(), err)
			continue
		}
		att.AuditPath = filepath.Join(dir, e.Name())
		out = append(out, att)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
