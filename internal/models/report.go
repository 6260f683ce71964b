package models

// ReportFormat selects the rendering of an exported results report.
type ReportFormat string

const (
	ReportFormatCSV      ReportFormat = "csv"
	ReportFormatXLSX     ReportFormat = "xlsx"
	ReportFormatPDF      ReportFormat = "pdf"
	ReportFormatMarkdown ReportFormat = "md"
)

// Valid reports whether the format is one of the supported renderings.
func (f ReportFormat) Valid() bool {
	switch f {
	case ReportFormatCSV, ReportFormatXLSX, ReportFormatPDF, ReportFormatMarkdown:
		return true
	}
	return false
}

// ResultStatus is the qualitative banding applied to a percentage score.
type ResultStatus string

const (
	ResultStatusPass ResultStatus = "Pass"
	ResultStatusFair ResultStatus = "Fair"
	ResultStatusFail ResultStatus = "Fail"
)

// BulkStatus bands a percentage for the multi-result report: Pass at 70 and
// above, Fair at 50 and above, Fail below.
func BulkStatus(percentage float64) ResultStatus {
	switch {
	case percentage >= 70:
		return ResultStatusPass
	case percentage >= 50:
		return ResultStatusFair
	default:
		return ResultStatusFail
	}
}

// SingleStatus bands a percentage for the single-result report, which only
// distinguishes Pass at 50 and above from Fail.
func SingleStatus(percentage float64) ResultStatus {
	if percentage >= 50 {
		return ResultStatusPass
	}
	return ResultStatusFail
}
