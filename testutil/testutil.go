// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/danielhkuo/campus-vote/auth"
	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/db"
)

// Secrets shared by every test
const (
	TestAdminKey    = "test-admin-key"
	TestBlindSecret = "test-blind-secret"
)

// TestMasterKey is a fixed 32-byte ballot master key
var TestMasterKey = []byte("0123456789abcdef0123456789abcdef")

// TestDate is the civil date every fixture election runs on
const TestDate = "2025-01-10"

// TestNow is 09:00 UTC+8 on TestDate, inside the default 08:00-17:00 window
func TestNow() time.Time {
	return time.Date(2025, 1, 10, 9, 0, 0, 0, time.FixedZone("UTC+8", 8*60*60))
}

// FixedClock returns a clock that always reads t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SetupTestDB creates a fresh SQLite database with the full schema.
// Each call gets its own file under t.TempDir().
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "campus-vote.db")
	conn, err := sql.Open(db.TypeSQLite, db.SQLiteDSN(path))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       ":memory:",
		DatabaseType:      db.TypeSQLite,
		AdminKey:          TestAdminKey,
		BallotMasterKey:   string(TestMasterKey),
		BlindSecret:       TestBlindSecret,
		ReconcileInterval: 0,
		LogLevel:          "debug",
	}
}

// ElectionOpts describes a fixture election. Zero values produce an ongoing
// election on TestDate from 08:00 to 17:00.
type ElectionOpts struct {
	Title         string
	DateFrom      *string
	DateTo        *string
	StartTime     *string
	EndTime       *string
	Status        string
	NeedsApproval bool
	Privileged    bool
	NoWindow      bool
}

func strPtr(s string) *string { return &s }

// CreateTestElection inserts an election and returns its ID
func CreateTestElection(t *testing.T, conn *sql.DB, opts ElectionOpts) string {
	t.Helper()

	if opts.Title == "" {
		opts.Title = "Student Council 2025"
	}
	if opts.Status == "" {
		opts.Status = "ongoing"
	}
	if !opts.NoWindow {
		if opts.DateFrom == nil {
			opts.DateFrom = strPtr(TestDate)
		}
		if opts.DateTo == nil {
			opts.DateTo = strPtr(TestDate)
		}
		if opts.StartTime == nil {
			opts.StartTime = strPtr("08:00:00")
		}
		if opts.EndTime == nil {
			opts.EndTime = strPtr("17:00:00")
		}
	}

	id := auth.NewRowID()
	_, err := conn.Exec(`
		INSERT INTO elections
			(id, title, date_from, date_to, start_time, end_time, status, needs_approval, created_by_privileged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, opts.Title, opts.DateFrom, opts.DateTo, opts.StartTime, opts.EndTime, opts.Status,
		opts.NeedsApproval, opts.Privileged)
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return id
}

// ElectionStatus reads the stored status of an election
func ElectionStatus(t *testing.T, conn *sql.DB, electionID string) string {
	t.Helper()

	var s string
	if err := conn.QueryRow(`SELECT status FROM elections WHERE id = $1`, electionID).Scan(&s); err != nil {
		t.Fatalf("Failed to read election status: %v", err)
	}
	return s
}

// PositionSpec describes one fixture position and its candidate names
type PositionSpec struct {
	Name       string
	MaxChoices int
	Candidates []string
}

// BallotFixture maps fixture names to generated IDs
type BallotFixture struct {
	BallotID   string
	Positions  map[string]string
	Candidates map[string]string
}

// CreateTestBallot builds the ballot structure for an election
func CreateTestBallot(t *testing.T, conn *sql.DB, electionID string, positions ...PositionSpec) BallotFixture {
	t.Helper()

	f := BallotFixture{
		BallotID:   auth.NewRowID(),
		Positions:  make(map[string]string),
		Candidates: make(map[string]string),
	}

	if _, err := conn.Exec(`INSERT INTO ballots (id, election_id) VALUES ($1, $2)`, f.BallotID, electionID); err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	for i, p := range positions {
		if p.MaxChoices == 0 {
			p.MaxChoices = 1
		}
		positionID := auth.NewRowID()
		_, err := conn.Exec(`
			INSERT INTO positions (id, ballot_id, name, max_choices, sort_order)
			VALUES ($1, $2, $3, $4, $5)
		`, positionID, f.BallotID, p.Name, p.MaxChoices, i)
		if err != nil {
			t.Fatalf("Failed to create test position: %v", err)
		}
		f.Positions[p.Name] = positionID

		for _, name := range p.Candidates {
			candidateID := auth.NewRowID()
			_, err := conn.Exec(`
				INSERT INTO candidates (id, position_id, name) VALUES ($1, $2, $3)
			`, candidateID, positionID, name)
			if err != nil {
				t.Fatalf("Failed to create test candidate: %v", err)
			}
			f.Candidates[name] = candidateID
		}
	}

	return f
}

// AddTestVoter puts a student on an election's roster
func AddTestVoter(t *testing.T, conn *sql.DB, electionID, studentID, courseName string) {
	t.Helper()

	var course *string
	if courseName != "" {
		course = &courseName
	}
	_, err := conn.Exec(`
		INSERT INTO eligible_voters (id, election_id, student_id, course_name)
		VALUES ($1, $2, $3, $4)
	`, auth.NewRowID(), electionID, studentID, course)
	if err != nil {
		t.Fatalf("Failed to add test voter: %v", err)
	}
}

// HasVoted reads a roster row's has_voted flag
func HasVoted(t *testing.T, conn *sql.DB, electionID, studentID string) bool {
	t.Helper()

	var voted bool
	err := conn.QueryRow(`
		SELECT has_voted FROM eligible_voters WHERE election_id = $1 AND student_id = $2
	`, electionID, studentID).Scan(&voted)
	if err != nil {
		t.Fatalf("Failed to read has_voted: %v", err)
	}
	return voted
}

// CountRows counts rows in table matching election_id
func CountRows(t *testing.T, conn *sql.DB, table, electionID string) int {
	t.Helper()

	var n int
	// table names come from test code only
	if err := conn.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE election_id = $1`, electionID).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// CreateTestPrecinct inserts a precinct and returns its ID
func CreateTestPrecinct(t *testing.T, conn *sql.DB, name string) string {
	t.Helper()

	id := auth.NewRowID()
	if _, err := conn.Exec(`INSERT INTO laboratory_precincts (id, name) VALUES ($1, $2)`, id, name); err != nil {
		t.Fatalf("Failed to create test precinct: %v", err)
	}
	return id
}

// AddressSpec describes one authorized address row
type AddressSpec struct {
	Type       string // single, range, subnet
	Address    string
	RangeStart string
	RangeEnd   string
	SubnetMask string
	Inactive   bool
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AddTestAddress authorizes an address for a precinct
func AddTestAddress(t *testing.T, conn *sql.DB, precinctID string, a AddressSpec) {
	t.Helper()

	if a.Type == "" {
		a.Type = "single"
	}
	_, err := conn.Exec(`
		INSERT INTO laboratory_ip_addresses
			(id, laboratory_precinct_id, ip_address, ip_type, ip_range_start, ip_range_end, subnet_mask, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, auth.NewRowID(), precinctID, nullable(a.Address), a.Type,
		nullable(a.RangeStart), nullable(a.RangeEnd), nullable(a.SubnetMask), !a.Inactive)
	if err != nil {
		t.Fatalf("Failed to add test address: %v", err)
	}
}

// MapTestProgram assigns a program to a precinct for one election
func MapTestProgram(t *testing.T, conn *sql.DB, electionID, precinct, program string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO election_precinct_programs (election_id, precinct, program)
		VALUES ($1, $2, $3)
	`, electionID, precinct, program)
	if err != nil {
		t.Fatalf("Failed to map test program: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case string:
			raw = []byte(b)
		case []byte:
			raw = b
		default:
			raw, _ = json.Marshal(body)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
