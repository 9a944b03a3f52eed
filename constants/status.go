package constants

// ReportStatus is the outcome recorded for one document in batch runs.
type ReportStatus string

const (
	ReportStatusProcessed ReportStatus = "PROCESSED"
	ReportStatusFailed    ReportStatus = "FAILED"
)

// Event types published to the report topic.
const (
	EventReportProcessed = "report.processed"
	EventReportDeleted   = "report.deleted"
)
