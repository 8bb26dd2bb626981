package reports

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/faxcloud/analyzer/internal/analysis"
	"github.com/faxcloud/analyzer/internal/archive"
	"github.com/faxcloud/analyzer/internal/config"
	"github.com/faxcloud/analyzer/internal/faxlog"
	"github.com/faxcloud/analyzer/internal/repository/postgres"
)

const sampleExport = "Utilisateur;Date Envoi;Type;Numéro Appelé;Nb Pages\n" +
	"jdupont;2024-03-15 10:30:00;SF;0145221134;3\n" +
	"mmartin;2024-03-15 11:00:00;RF;0145221135;2\n" +
	"jdupont;2024-03-16 09:00:00;SF;bad;1\n"

func newTestService(t *testing.T, allowDuplicates bool) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	arch, err := archive.New(context.Background(), config.ArchiveConfig{UploadsDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	engine := analysis.NewEngine(faxlog.NewRowValidator(), analysis.NewDetector())
	svc := NewService(postgres.NewReportRepo(db), arch, faxlog.NewImporter(faxlog.DefaultAliases()),
		engine, nil, allowDuplicates)
	return svc, mock
}

func expectSuccessfulPersist(mock sqlmock.Sqlmock, rowCount int) {
	mock.ExpectQuery("SELECT (.+) FROM fax_reports").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO fax_reports").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE fax_reports SET original_path").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO fax_report_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE fax_reports SET latest_run_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fax_transmissions")
	for i := 0; i < rowCount; i++ {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(int64(i + 1), 1))
	}
	mock.ExpectCommit()
}

func TestImportFile(t *testing.T) {
	svc, mock := newTestService(t, false)
	expectSuccessfulPersist(mock, 3)

	outcome, err := svc.ImportFile(context.Background(), "march.csv", []byte(sampleExport), analysis.RunContext{ContractID: "C-7"})
	if err != nil {
		t.Fatalf("ImportFile() error: %v", err)
	}

	if outcome.Report.ID == "" || outcome.RunID == "" {
		t.Errorf("outcome ids = %+v", outcome)
	}
	if outcome.Report.LatestRunID != outcome.RunID {
		t.Errorf("LatestRunID = %q, want %q", outcome.Report.LatestRunID, outcome.RunID)
	}
	if outcome.Meta.TotalRows != 3 {
		t.Errorf("meta = %+v", outcome.Meta)
	}

	s := outcome.Result.Statistics
	if s.Total != 3 || s.Sent != 1 || s.Received != 1 || s.Errors != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.ContractID != "C-7" {
		t.Errorf("ContractID = %q", s.ContractID)
	}
	if outcome.Report.OriginalPath == "" {
		t.Error("original not archived")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportFileDuplicate(t *testing.T) {
	svc, mock := newTestService(t, false)

	cols := []string{"id", "filename", "checksum", "original_path", "public_token", "latest_run_id", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM fax_reports").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("rep-1", "march.csv", "cs", "", "tok", nil, time.Now()))

	_, err := svc.ImportFile(context.Background(), "march.csv", []byte(sampleExport), analysis.RunContext{})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("error = %v, want ErrDuplicate", err)
	}
}

func TestImportFileDuplicatesAllowed(t *testing.T) {
	svc, mock := newTestService(t, true)

	// No checksum lookup happens when duplicates are allowed.
	mock.ExpectExec("INSERT INTO fax_reports").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE fax_reports SET original_path").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO fax_report_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE fax_reports SET latest_run_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO fax_transmissions")
	for i := 0; i < 3; i++ {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	mock.ExpectCommit()

	outcome, err := svc.ImportFile(context.Background(), "march.csv", []byte(sampleExport), analysis.RunContext{})
	if err != nil {
		t.Fatalf("ImportFile() error: %v", err)
	}
	if outcome.Report.ID == "" {
		t.Error("no report created")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportFileStructuralFailure(t *testing.T) {
	svc, mock := newTestService(t, false)
	mock.ExpectQuery("SELECT (.+) FROM fax_reports").WillReturnError(sql.ErrNoRows)

	_, err := svc.ImportFile(context.Background(), "bad.csv", []byte("a;b\n1;2\n"), analysis.RunContext{})
	var missing *faxlog.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Errorf("error = %v, want *MissingColumnsError", err)
	}
}

func TestImportFileEmpty(t *testing.T) {
	svc, mock := newTestService(t, false)
	mock.ExpectQuery("SELECT (.+) FROM fax_reports").WillReturnError(sql.ErrNoRows)

	_, err := svc.ImportFile(context.Background(), "empty.csv", []byte("  \n"), analysis.RunContext{})
	if !errors.Is(err, faxlog.ErrEmptyTable) {
		t.Errorf("error = %v, want ErrEmptyTable", err)
	}
}

func TestResultForRun(t *testing.T) {
	svc, mock := newTestService(t, false)

	statsJSON := `{"statistics":{"total":5,"sent":3,"received":1,"errors":1,"success_rate":80}}`
	mock.ExpectQuery("SELECT (.+) FROM fax_report_runs").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_id", "status", "stats_json", "started_at", "completed_at"}).
			AddRow("run-1", "rep-1", "completed", statsJSON, time.Now(), time.Now()))

	result, err := svc.ResultForRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ResultForRun() error: %v", err)
	}
	if result.Statistics.Total != 5 || result.Statistics.SuccessRate != 80 {
		t.Errorf("statistics = %+v", result.Statistics)
	}
}

func TestResultForRunNotFound(t *testing.T) {
	svc, mock := newTestService(t, false)
	mock.ExpectQuery("SELECT (.+) FROM fax_report_runs").WillReturnError(sql.ErrNoRows)

	_, err := svc.ResultForRun(context.Background(), "missing")
	if !errors.Is(err, postgres.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
