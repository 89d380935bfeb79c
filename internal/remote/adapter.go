// Package remote maps the backend's transactions, plans and profiles tables
// onto the domain model. Column-name ambiguity is absorbed here and never
// leaves the package.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lacag-app/lacag/internal/baas"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
)

const (
	tableTransactions = "transactions"
	tablePlans        = "plans"
	tableProfiles     = "profiles"

	// DefaultWindowDays is the trailing window FetchRecent uses when none is given.
	DefaultWindowDays = 30
)

// ErrNoSession is returned when an operation is called without a valid session.
var ErrNoSession = errors.New("remote: no valid session")

// Adapter is the remote transaction store.
type Adapter struct {
	client *baas.Client
	log    logrus.FieldLogger
	now    func() time.Time
	loc    *time.Location
}

// New wraps client. Timestamps are reported in the local time zone.
func New(client *baas.Client, log logrus.FieldLogger) *Adapter {
	return &Adapter{
		client: client,
		log:    log.WithField("component", "remote"),
		now:    time.Now,
		loc:    time.Local,
	}
}

func checkSession(sess *model.Session) error {
	if !sess.Valid() {
		return ErrNoSession
	}
	return nil
}

func (a *Adapter) mapTransactions(rows []transactionRow) []model.Transaction {
	out := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toModel(a.loc)
		if err != nil {
			a.log.WithError(err).WithField("id", string(r.ID)).Warn("skipping unreadable transaction row")
			continue
		}
		out = append(out, tx)
	}
	return out
}

// FetchRecent returns the user's expenses created since the start of the day
// windowDays ago, newest first.
func (a *Adapter) FetchRecent(ctx context.Context, sess *model.Session, windowDays int) ([]model.Transaction, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	since := pipeline.StartOfDay(a.now().In(a.loc)).AddDate(0, 0, -windowDays)

	var rows []transactionRow
	err := a.client.From(tableTransactions).
		Select("*").
		Eq("user_id", sess.UserID).
		Eq("type", string(model.Expense)).
		Gte("created_at", since).
		Order("created_at", true).
		Do(ctx, sess.AccessToken, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetching recent transactions: %w", err)
	}
	return a.mapTransactions(rows), nil
}

// FetchActiveDailyLimit returns the daily limit of the plan whose date range
// contains asOf, or nil when no such plan exists.
func (a *Adapter) FetchActiveDailyLimit(ctx context.Context, sess *model.Session, asOf time.Time) (*float64, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	day := asOf.In(a.loc).Format("2006-01-02")

	var rows []planRow
	err := a.client.From(tablePlans).
		Select("id,daily_limit,start_date,end_date").
		Eq("user_id", sess.UserID).
		Lte("start_date", day).
		Gte("end_date", day).
		Order("created_at", true).
		Limit(1).
		Do(ctx, sess.AccessToken, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetching active plan: %w", err)
	}
	if len(rows) == 0 || rows[0].DailyLimit == nil || *rows[0].DailyLimit <= 0 {
		return nil, nil
	}
	v := float64(*rows[0].DailyLimit)
	return &v, nil
}

// InsertExpense creates an expense row stamped by the server and returns the
// stored record.
func (a *Adapter) InsertExpense(ctx context.Context, sess *model.Session, amount float64, category string) (model.Transaction, error) {
	return a.InsertTransaction(ctx, sess, model.Transaction{
		Amount:   amount,
		Kind:     model.Expense,
		Category: category,
	})
}

// InsertTransaction creates a row owned by the session user. A zero
// OccurredAt leaves the timestamp to the server.
func (a *Adapter) InsertTransaction(ctx context.Context, sess *model.Session, tx model.Transaction) (model.Transaction, error) {
	if err := checkSession(sess); err != nil {
		return model.Transaction{}, err
	}
	tx.UserID = sess.UserID

	var rows []transactionRow
	if err := a.client.Insert(ctx, sess.AccessToken, tableTransactions, writeFromModel(tx), &rows); err != nil {
		return model.Transaction{}, fmt.Errorf("inserting transaction: %w", err)
	}
	return a.single(rows)
}

// UpdateTransaction overwrites the editable columns of tx.ID.
func (a *Adapter) UpdateTransaction(ctx context.Context, sess *model.Session, tx model.Transaction) (model.Transaction, error) {
	if err := checkSession(sess); err != nil {
		return model.Transaction{}, err
	}
	w := writeFromModel(tx)
	w.UserID = ""

	var rows []transactionRow
	if err := a.client.Update(ctx, sess.AccessToken, tableTransactions, tx.ID, w, &rows); err != nil {
		return model.Transaction{}, fmt.Errorf("updating transaction %s: %w", tx.ID, err)
	}
	return a.single(rows)
}

// DeleteTransaction removes id. It fails unless the backend confirms the deletion.
func (a *Adapter) DeleteTransaction(ctx context.Context, sess *model.Session, id string) error {
	if err := checkSession(sess); err != nil {
		return err
	}
	if err := a.client.Delete(ctx, sess.AccessToken, tableTransactions, id); err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	return nil
}

// ListTransactions returns the user's full history, newest first.
func (a *Adapter) ListTransactions(ctx context.Context, sess *model.Session) ([]model.Transaction, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	var rows []transactionRow
	err := a.client.From(tableTransactions).
		Eq("user_id", sess.UserID).
		Order("created_at", true).
		Do(ctx, sess.AccessToken, &rows)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return a.mapTransactions(rows), nil
}

func (a *Adapter) single(rows []transactionRow) (model.Transaction, error) {
	if len(rows) == 0 {
		return model.Transaction{}, fmt.Errorf("backend returned no row: %w", baas.ErrNotFound)
	}
	return rows[0].toModel(a.loc)
}
