package history

import (
	"time"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

// UnknownAreaTitle is used when neither the geofence list nor the record names the area.
const UnknownAreaTitle = "Unknown area"

type visitKey struct {
	areaID    string
	entryTime string
}

type visit struct {
	session domain.VisitSession
	exit    time.Time
	hasExit bool
}

// Reconcile rebuilds visit sessions from the raw activity log.
//
// Every EXITED record with an area and an entry time yields one session keyed
// by (areaId, entryTime). Each auto_exit VOLUME_MEASUREMENT is then attached
// to the session of the same area whose exit is the latest one not after the
// measurement; a session keeps the first volume it receives. Sessions are
// returned in the order their key was first seen.
//
// Records that lack the required fields or carry unparseable timestamps are
// skipped. A repeated key overwrites the earlier record but keeps its position.
// When two candidate sessions share the same exit instant the one created
// first wins.
func Reconcile(records []domain.ActivityLogRecord, areaNames map[string]string) []domain.VisitSession {
	index := make(map[visitKey]int)
	visits := make([]*visit, 0)

	for _, rec := range records {
		if rec.Event != domain.EventExited || rec.AreaID == "" || rec.EntryTime == "" {
			continue
		}
		if _, err := domain.ParseTimestamp(rec.EntryTime); err != nil {
			continue
		}

		v := &visit{
			session: domain.VisitSession{
				Start:           rec.EntryTime,
				Title:           resolveTitle(rec, areaNames),
				EntryTime:       rec.EntryTime,
				ExitTime:        rec.ExitTime,
				DurationSeconds: nonNegative(rec.DurationSeconds),
				AreaID:          rec.AreaID,
			},
		}
		if rec.ExitTime != "" {
			exit, err := domain.ParseTimestamp(rec.ExitTime)
			if err != nil {
				continue
			}
			v.exit, v.hasExit = exit, true
		}

		key := visitKey{areaID: rec.AreaID, entryTime: rec.EntryTime}
		if pos, ok := index[key]; ok {
			visits[pos] = v
			continue
		}
		index[key] = len(visits)
		visits = append(visits, v)
	}

	for _, rec := range records {
		if rec.Event != domain.EventVolumeMeasurement || rec.AreaID == "" || rec.Source != domain.SourceAutoExit {
			continue
		}
		volume := nonNegative(rec.VolumeLiter)
		if volume == nil {
			continue
		}
		measuredAt, err := domain.ParseTimestamp(rec.Timestamp)
		if err != nil {
			continue
		}

		target := latestExitBefore(visits, rec.AreaID, measuredAt)
		if target == nil || target.session.Volume != nil {
			continue
		}
		target.session.Volume = volume
		target.session.Distance = nonNegative(rec.DistanceCM)
	}

	out := make([]domain.VisitSession, 0, len(visits))
	for _, v := range visits {
		out = append(out, v.session)
	}
	return out
}

func latestExitBefore(visits []*visit, areaID string, at time.Time) *visit {
	var best *visit
	for _, v := range visits {
		if v.session.AreaID != areaID || !v.hasExit || v.exit.After(at) {
			continue
		}
		if best == nil || v.exit.After(best.exit) {
			best = v
		}
	}
	return best
}

func resolveTitle(rec domain.ActivityLogRecord, areaNames map[string]string) string {
	if name := areaNames[rec.AreaID]; name != "" {
		return name
	}
	if rec.AreaName != "" {
		return rec.AreaName
	}
	return UnknownAreaTitle
}

func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	c := *v
	return &c
}
