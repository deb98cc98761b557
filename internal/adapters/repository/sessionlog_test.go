package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/ecotrack/internal/adapters/repository"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleRecord(i int) model.EstimateRecord {
	sample := model.InputSample{TransportKm: float64(i) * 1.1, Meals: i % 4, EnergyKWh: float64(i) / 3}
	total := footprint.Estimate(sample.TransportKm, float64(sample.Meals), sample.EnergyKWh)
	at := time.Date(2026, 1, 2, 3, 4, 5, i*int(time.Millisecond), time.UTC)
	return model.NewEstimateRecord(sample, total, at)
}

func TestSessionLog(t *testing.T) {
	Convey("Given a session log over a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		log := repository.NewSessionLog(store)

		Convey("When nothing was appended", func() {
			records, err := log.Records(ctx, "s1")
			_, ok, lastErr := log.Last(ctx, "s1")

			Convey("Then the log is empty", func() {
				So(err, ShouldBeNil)
				So(records, ShouldBeEmpty)
				So(lastErr, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When appending N records", func() {
			var want []model.EstimateRecord
			for i := 0; i < 25; i++ {
				rec := sampleRecord(i)
				want = append(want, rec)
				So(log.Append(ctx, "s1", rec), ShouldBeNil)
			}

			Convey("Then reading back yields the same records in order", func() {
				got, err := log.Records(ctx, "s1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
			})

			Convey("And every stored total satisfies the estimate formula", func() {
				got, _ := log.Records(ctx, "s1")
				for _, r := range got {
					So(r.Total, ShouldEqual, footprint.Estimate(r.Transport, float64(r.Meals), r.Energy))
				}
			})

			Convey("And Last returns the newest record", func() {
				last, ok, err := log.Last(ctx, "s1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(last, ShouldResemble, want[len(want)-1])
			})

			Convey("And the stored layout uses the session key and field names", func() {
				raw, ok, err := store.Get(ctx, "s1", repository.LogKey)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(raw), ShouldStartWith, `[{"transport":0,"meals":0,"energy":0,"total":0,"ts":"2026-01-02T03:04:05.000Z"}`)
			})
		})

		Convey("When appending concurrently to one session", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = log.Append(ctx, "s1", sampleRecord(i))
				}(i)
			}
			wg.Wait()

			Convey("Then no append is lost", func() {
				got, err := log.Records(ctx, "s1")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 20)
			})
		})

		Convey("When the stored value is not valid JSON", func() {
			So(store.Set(ctx, "s1", repository.LogKey, []byte("{oops")), ShouldBeNil)

			Convey("Then reads and appends report ErrCorrupt", func() {
				_, err := log.Records(ctx, "s1")
				So(errors.Is(err, repository.ErrCorrupt), ShouldBeTrue)
				err = log.Append(ctx, "s1", sampleRecord(1))
				So(errors.Is(err, repository.ErrCorrupt), ShouldBeTrue)
			})
		})
	})

	Convey("Given a session log over a store that rejects writes", t, func() {
		ctx := context.Background()
		log := repository.NewSessionLog(failingStore{err: fmt.Errorf("set: %w", repository.ErrQuotaExceeded)})

		Convey("When appending", func() {
			err := log.Append(ctx, "s1", sampleRecord(1))

			Convey("Then the store error is returned", func() {
				So(errors.Is(err, repository.ErrQuotaExceeded), ShouldBeTrue)
			})
		})
	})
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (f failingStore) Set(context.Context, string, string, []byte) error { return f.err }
