// Package store keeps Celero records in a SQL database so that reports
// can be rendered again without the original CSV files.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/tiancaiamao/celerograph"
)

// Supported driver names.
const (
	MySQL  = "mysql"
	SQLite = "sqlite"
)

// DB stores uploads of benchmark records.
type DB struct {
	sql *sql.DB

	insertUpload *sql.Stmt
	insertSample *sql.Stmt
}

// OpenSQL opens the database and creates missing tables. driverName is
// MySQL or SQLite; a MySQL DSN is re-formatted with parseTime enabled.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	switch driverName {
	case MySQL:
		cfg, err := mysql.ParseDSN(dataSourceName)
		if err != nil {
			return nil, err
		}
		cfg.ParseTime = true
		dataSourceName = cfg.FormatDSN()
	case SQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if driverName == SQLite {
		db.SetMaxOpenConns(1)
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID {{if .sqlite}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT{{end}},
	Label VARCHAR(255),
	Created VARCHAR(64)
);
CREATE TABLE IF NOT EXISTS Samples (
	UploadID BIGINT,
	Seq BIGINT,
	GroupName VARCHAR(255),
	File VARCHAR(1024),
	Experiment VARCHAR(255),
	ProblemSpace BIGINT,
	Feature VARCHAR(64),
	Value DOUBLE,
	PRIMARY KEY (UploadID, Seq, Feature)
);
`))

func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

func (db *DB) prepareStatements() error {
	var err error
	db.insertUpload, err = db.sql.Prepare("INSERT INTO Uploads(Label, Created) VALUES (?, ?)")
	if err != nil {
		return err
	}
	db.insertSample, err = db.sql.Prepare("INSERT INTO Samples(UploadID, Seq, GroupName, File, Experiment, ProblemSpace, Feature, Value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	return err
}

// An Upload is a batch of records stored under one ID.
type Upload struct {
	ID    int64
	Label string

	seq int64
	db  *DB
}

// NewUpload starts a new upload.
func (db *DB) NewUpload(ctx context.Context, label string) (*Upload, error) {
	res, err := db.insertUpload.ExecContext(ctx, label, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Upload{ID: id, Label: label, db: db}, nil
}

// InsertRecord stores r, one row per feature, in a single transaction.
func (u *Upload) InsertRecord(ctx context.Context, r *celerograph.Record) (err error) {
	tx, err := u.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	stmt := tx.StmtContext(ctx, u.db.insertSample)
	for f := celerograph.Feature(0); f < celerograph.NumFeatures; f++ {
		if _, err = stmt.ExecContext(ctx, u.ID, u.seq, r.Group, r.File, r.Experiment, r.ProblemSpace, f.String(), r.Value(f)); err != nil {
			return err
		}
	}
	u.seq++
	return nil
}

// InsertAll stores every record of s.
func (u *Upload) InsertAll(ctx context.Context, s celerograph.RecordScanner) (int, error) {
	n := 0
	for s.Scan() {
		if err := u.InsertRecord(ctx, s.Record()); err != nil {
			return n, err
		}
		n++
	}
	return n, s.Err()
}

// UploadInfo describes a stored upload.
type UploadInfo struct {
	ID      int64
	Label   string
	Created string
	Records int
}

// ListUploads returns all uploads, oldest first.
func (db *DB) ListUploads(ctx context.Context) ([]UploadInfo, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT u.UploadID, u.Label, u.Created, COUNT(DISTINCT s.Seq)
FROM Uploads u LEFT JOIN Samples s ON s.UploadID = u.UploadID
GROUP BY u.UploadID, u.Label, u.Created
ORDER BY u.UploadID`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []UploadInfo
	for rows.Next() {
		var info UploadInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.Created, &info.Records); err != nil {
			return nil, err
		}
		res = append(res, info)
	}
	return res, rows.Err()
}

// LoadUpload rebuilds the Aggregate of upload id in insertion order.
func (db *DB) LoadUpload(ctx context.Context, id int64) (*celerograph.Aggregate, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT Seq, GroupName, File, Experiment, ProblemSpace, Feature, Value
FROM Samples WHERE UploadID = ? ORDER BY Seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agg := celerograph.NewAggregate()
	var (
		cur     *celerograph.Record
		curSeq  int64
		present int
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		if present != celerograph.NumFeatures {
			return fmt.Errorf("upload %d: record %d has %d of %d features", id, curSeq, present, celerograph.NumFeatures)
		}
		agg.Add(cur)
		return nil
	}
	for rows.Next() {
		var (
			seq     int64
			rec     celerograph.Record
			feature string
			value   float64
		)
		if err := rows.Scan(&seq, &rec.Group, &rec.File, &rec.Experiment, &rec.ProblemSpace, &feature, &value); err != nil {
			return nil, err
		}
		f, err := celerograph.ParseFeature(feature)
		if err != nil {
			return nil, fmt.Errorf("upload %d: %v", id, err)
		}
		if cur == nil || seq != curSeq {
			if err := flush(); err != nil {
				return nil, err
			}
			r := rec
			cur, curSeq, present = &r, seq, 0
		}
		cur.Values[f] = value
		present++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if agg.Len() == 0 {
		return nil, fmt.Errorf("upload %d: not found", id)
	}
	return agg, nil
}

// Close releases the prepared statements and the connection pool.
func (db *DB) Close() error {
	if err := db.insertUpload.Close(); err != nil {
		return err
	}
	if err := db.insertSample.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
