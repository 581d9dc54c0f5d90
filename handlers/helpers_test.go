package handlers

import (
	"database/sql"
	"testing"

	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/precinct"
	"github.com/danielhkuo/campus-vote/sealer"
	"github.com/danielhkuo/campus-vote/status"
	"github.com/danielhkuo/campus-vote/testutil"
	"github.com/danielhkuo/campus-vote/voting"
)

const (
	voterID   = "2021-00001"
	labIP     = "192.168.1.50"
	outsideIP = "10.1.2.3"
)

// env is an ongoing election with a two-position ballot, one roster voter
// and handlers whose clocks are pinned to testutil.TestNow
type env struct {
	db         *sql.DB
	electionID string
	ballot     testutil.BallotFixture
	voting     *VotingHandler
	elections  *ElectionHandler
}

func setupEnv(t *testing.T) env {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { db.Close() })

	electionID := testutil.CreateTestElection(t, db, testutil.ElectionOpts{})
	ballot := testutil.CreateTestBallot(t, db, electionID,
		testutil.PositionSpec{Name: "President", MaxChoices: 1, Candidates: []string{"Alice", "Bob"}},
		testutil.PositionSpec{Name: "Senator", MaxChoices: 2, Candidates: []string{"Carol", "Dan", "Eve"}},
	)
	testutil.AddTestVoter(t, db, electionID, voterID, "BSCS")

	s, err := sealer.New(testutil.TestMasterKey)
	if err != nil {
		t.Fatalf("sealer.New() error = %v", err)
	}
	clock := testutil.FixedClock(testutil.TestNow())

	gate := precinct.NewGate(db)
	roster := voting.NewRoster(db, gate)
	return env{
		db:         db,
		electionID: electionID,
		ballot:     ballot,
		voting: NewVotingHandler(gate,
			voting.NewSubmitter(db, s, testutil.TestBlindSecret, clock),
			voting.NewReceipts(db, s, testutil.TestBlindSecret),
			roster),
		elections: NewElectionHandler(status.NewReconciler(db, clock), nil, roster),
	}
}

// assignLab restricts BSCS students to a lab that owns labIP
func (e env) assignLab(t *testing.T) {
	t.Helper()
	lab := testutil.CreateTestPrecinct(t, e.db, "CCS Lab 1")
	testutil.AddTestAddress(t, e.db, lab, testutil.AddressSpec{Address: labIP})
	testutil.MapTestProgram(t, e.db, e.electionID, "CCS Lab 1", "BSCS")
}

type ballotBody struct {
	Selections []models.Selection `json:"selections"`
}

// validBallot picks Alice for President and Carol and Dan for Senator
func (e env) validBallot() ballotBody {
	return ballotBody{Selections: []models.Selection{
		{PositionID: e.ballot.Positions["President"], CandidateIDs: []string{e.ballot.Candidates["Alice"]}},
		{PositionID: e.ballot.Positions["Senator"], CandidateIDs: []string{e.ballot.Candidates["Carol"], e.ballot.Candidates["Dan"]}},
	}}
}

func studentHeaders(studentID string) map[string]string {
	return map[string]string{"X-Student-ID": studentID}
}
