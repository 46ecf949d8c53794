package trace

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sarchlab/ramarbiter/ram"
)

const (
	flagReqOverflow = 1 << iota
	flagAckOverflow
	flagCplOverflow
	flagDone
	flagReqIgnored
)

func encodeFlags(f ram.PortFlags) int {
	v := 0

	if f.ReqOverflow {
		v |= flagReqOverflow
	}

	if f.AckOverflow {
		v |= flagAckOverflow
	}

	if f.CplOverflow {
		v |= flagCplOverflow
	}

	if f.Done {
		v |= flagDone
	}

	if f.ReqIgnored {
		v |= flagReqIgnored
	}

	return v
}

func decodeFlags(v int) ram.PortFlags {
	return ram.PortFlags{
		ReqOverflow: v&flagReqOverflow != 0,
		AckOverflow: v&flagAckOverflow != 0,
		CplOverflow: v&flagCplOverflow != 0,
		ReqIgnored:  v&flagReqIgnored != 0,
		Done:        v&flagDone != 0,
	}
}

// SQLiteRecorder writes events into a SQLite database. Events are buffered and
// written in batches. Every recorder tags its rows with its own run ID, so
// several runs can share one database file.
type SQLiteRecorder struct {
	*sql.DB
	statement *sql.Stmt

	path      string
	runID     string
	seq       int
	batchSize int
	pending   []Event
}

// NewSQLiteRecorder opens, or creates, the database at path. If path is empty,
// a file with a unique name is created in the working directory.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	r := &SQLiteRecorder{
		path:      path,
		runID:     xid.New().String(),
		batchSize: 10000,
	}

	if r.path == "" {
		r.path = "ramarb_trace_" + r.runID + ".sqlite3"
	}

	db, err := sql.Open("sqlite3", r.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", r.path, err)
	}

	r.DB = db

	if err := r.createTable(); err != nil {
		db.Close()
		return nil, err
	}

	r.statement, err = db.Prepare(`
		insert into events (
			run_id, seq, cycle, kind, port, req_id, addr, data,
			write, sob, eob, eof, flush, dropped, flags
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Trace is collected in database %s, run %s\n",
		r.path, r.runID)

	return r, nil
}

// Path returns the file the events are written to.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// RunID returns the ID that tags the rows of this recorder.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

func (r *SQLiteRecorder) createTable() error {
	_, err := r.Exec(`
		create table if not exists events
		(
			run_id  varchar(32) not null,
			seq     integer     not null,
			cycle   integer     not null,
			kind    varchar(16) not null,
			port    integer     not null,
			req_id  varchar(64),
			addr    integer,
			data    integer,
			write   boolean,
			sob     boolean,
			eob     boolean,
			eof     boolean,
			flush   boolean,
			dropped boolean,
			flags   integer
		);
		create index if not exists events_run_seq_index
			on events (run_id, seq);
		create index if not exists events_kind_index
			on events (kind);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	return nil
}

// Record buffers an event. It panics if a full batch cannot be written.
func (r *SQLiteRecorder) Record(e Event) {
	r.pending = append(r.pending, e)

	if len(r.pending) >= r.batchSize {
		if err := r.Flush(); err != nil {
			panic(err)
		}
	}
}

// Flush writes all the buffered events to the database.
func (r *SQLiteRecorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	stmt := tx.Stmt(r.statement)

	for _, e := range r.pending {
		_, err := stmt.Exec(
			r.runID, r.seq, int64(e.Cycle), string(e.Kind), int(e.Port),
			e.ReqID, int64(e.Addr), int64(e.Data),
			e.Write, e.SOB, e.EOB, e.EOF, e.Flush, e.Dropped,
			encodeFlags(e.Flags),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting event %d: %w", r.seq, err)
		}

		r.seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing events: %w", err)
	}

	r.pending = nil

	return nil
}

// Close flushes the buffered events and closes the database.
func (r *SQLiteRecorder) Close() error {
	if r.DB == nil {
		return nil
	}

	err := r.Flush()

	r.statement.Close()
	r.DB.Close()
	r.DB = nil

	return err
}

// ReadSQLite loads the events of one run from a database written by a
// SQLiteRecorder. An empty runID selects the most recent run in the file.
func ReadSQLite(path, runID string) ([]Event, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	if runID == "" {
		err := db.QueryRow(
			`select run_id from events order by rowid desc limit 1`,
		).Scan(&runID)
		if err != nil {
			return nil, fmt.Errorf("finding the last run in %s: %w", path, err)
		}
	}

	rows, err := db.Query(`
		select cycle, kind, port, req_id, addr, data,
			write, sob, eob, eof, flush, dropped, flags
		from events where run_id = ? order by seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []Event

	for rows.Next() {
		var (
			e                 Event
			kind              string
			port, flags       int
			cycle, addr, data int64
		)

		err := rows.Scan(&cycle, &kind, &port, &e.ReqID, &addr, &data,
			&e.Write, &e.SOB, &e.EOB, &e.EOF, &e.Flush, &e.Dropped, &flags)
		if err != nil {
			return nil, fmt.Errorf("reading run %s: %w", runID, err)
		}

		e.Cycle = uint64(cycle)
		e.Kind = Kind(kind)
		e.Port = ram.PortID(port)
		e.Addr = uint64(addr)
		e.Data = uint64(data)
		e.Flags = decodeFlags(flags)

		events = append(events, e)
	}

	return events, rows.Err()
}
