package sink

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "attention_readings", "fatigue_alerts")
	ts := time.Now()

	readings := []domain.Reading{
		{HeadsetID: "INSIGHT-1", Timestamp: ts, Score: 9.5, Status: domain.StatusNormal},
		{HeadsetID: "INSIGHT-1", Timestamp: ts.Add(time.Second), Score: 3, Status: domain.StatusLow},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO attention_readings (headset_id, ts, score, status) VALUES ($1,$2,$3,$4),($5,$6,$7,$8) ON CONFLICT (headset_id, ts) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("INSIGHT-1", ts, 9.5, "NORMAL", "INSIGHT-1", ts.Add(time.Second), 3.0, "LOW").
		WillReturnResult(sqlmock.NewResult(2, 2))

	if err := sink.WriteBatch(readings); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchNoReadings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "attention_readings", "fatigue_alerts")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	cause := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO attention_readings").WillReturnError(cause)

	sink := NewTimescaleSink(db, "attention_readings", "fatigue_alerts")
	err = sink.WriteBatch([]domain.Reading{{Timestamp: time.Now()}})
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestTimescaleSinkWriteBatchTimesOut(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO attention_readings").
		WillDelayFor(2 * time.Second).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sink := NewTimescaleSink(db, "attention_readings", "fatigue_alerts")
	sink.SetWriteTimeout(50 * time.Millisecond)

	start := time.Now()
	err = sink.WriteBatch([]domain.Reading{{Timestamp: start}})
	if err == nil {
		t.Fatalf("expected a stalled insert to fail")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("insert was not bounded by the write timeout: %s", elapsed)
	}
}

func TestTimescaleSinkWriteAlert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	raised := time.Unix(1700000000, 0)
	res := &domain.AlertResult{
		Alert: domain.Alert{
			Reading: domain.Reading{Score: 3.2, Status: domain.StatusLow},
			Episode: 4,
			Raised:  raised,
		},
		Deliveries: []domain.Delivery{{Recipient: "+1", Ack: &domain.Ack{Channel: "sms", ID: "SM1"}}},
	}
	res.AddError(domain.StepNearby, "no nearby restaurant found", nil)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fatigue_alerts (episode, raised_at, score, manual, delivered, errors, result) VALUES ($1,$2,$3,$4,$5,$6,$7)")).
		WithArgs(uint64(4), raised, 3.2, false, 1, []byte(`["nearby: no nearby restaurant found"]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sink := NewTimescaleSink(db, "attention_readings", "fatigue_alerts")
	if err := sink.WriteAlert(res); err != nil {
		t.Fatalf("write alert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attention_readings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS fatigue_alerts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT create_hypertable").WillReturnError(errors.New("function create_hypertable does not exist"))

	sink := NewTimescaleSink(db, "attention_readings", "fatigue_alerts")
	if err := sink.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "attention_readings", "fatigue_alerts")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
