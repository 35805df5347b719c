package messaging

// Subjects follow {domain}.{resource}.{event}.
const (
	SubjectRollupJobsCreated = "rollup.jobs.created"
	SubjectRollupJobsUpdated = "rollup.jobs.updated"
	SubjectRollupJobsFailed  = "rollup.jobs.failed"

	SubjectRollupWizardsCancelled = "rollup.wizards.cancelled"

	// SubjectRollupAll matches every rollup event.
	SubjectRollupAll = "rollup.>"
)

// HeaderSession carries the wizard session id.
const HeaderSession = "Rollup-Session"

// RollupJobSubject returns the subject for a job-level event.
// Example: rollup.jobs.created.nightly_rollup
func RollupJobSubject(base, jobID string) string {
	if jobID == "" {
		return base
	}
	return base + "." + jobID
}
