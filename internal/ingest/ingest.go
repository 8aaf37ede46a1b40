// Package ingest is the ingestion boundary between the loosely-typed
// CRD wire format and the validated records the rest of the controller
// operates on. A declaration either crosses this boundary whole, or it
// is rejected whole: nothing partially validated is ever handed to the
// Schedule Store.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/linki/hpa-schedule-controller/api/v1alpha1"
	"github.com/linki/hpa-schedule-controller/internal/clock"
	"github.com/linki/hpa-schedule-controller/internal/schedulestore"
)

var validate = validator.New()

// scheduleRecord is the intermediate, tag-validated shape of a single
// window declaration, decoded from the CRD spec's loosely-typed map
// form before its fields are given their final Go types.
type scheduleRecord struct {
	Start             string   `mapstructure:"start" validate:"required"`
	ScaleType         string   `mapstructure:"scaleType" validate:"required"`
	TargetMinReplicas int64    `mapstructure:"targetMinReplicas" validate:"min=1"`
	Days              []string `mapstructure:"days" validate:"required,min=1,dive,oneof=everyday weekday weekend sun mon tue wed thu fri sat"`

	TotalDuration struct {
		Hours   int `mapstructure:"hours" validate:"min=0"`
		Minutes int `mapstructure:"minutes" validate:"min=0,max=59"`
	} `mapstructure:"totalDuration"`

	// ScaleDuration is carried for wire compatibility with the
	// declarations this schema evolved from. It is validated and
	// stored alongside the window but never consulted by the Decision
	// Engine.
	ScaleDuration struct {
		Minutes int `mapstructure:"minutes" validate:"min=0"`
	} `mapstructure:"scaleDuration"`
}

// appRecord is one application's intermediate, tag-validated shape.
type appRecord struct {
	Name               string           `mapstructure:"name" validate:"required"`
	DefaultMinReplicas int64            `mapstructure:"defaultMinReplicas" validate:"min=1"`
	Schedules          []scheduleRecord `mapstructure:"schedules" validate:"dive"`
}

// specRecord is the whole declaration's intermediate, tag-validated
// shape.
type specRecord struct {
	Env  string      `mapstructure:"env" validate:"required"`
	Apps []appRecord `mapstructure:"apps" validate:"required,min=1,dive"`
}

// Ingest converts a watched ScheduledScaling object into the
// AppSchedule records the Schedule Store understands, or rejects the
// whole object with an error naming the offending fields.
//
// The object's Spec is first round-tripped through a loosely-typed map
// and decoded back with mapstructure, mirroring the boundary a real
// watch delivers raw JSON across, then validated with struct tags
// before any of its fields are trusted.
func Ingest(obj *v1alpha1.ScheduledScaling) ([]schedulestore.AppSchedule, error) {
	raw, err := toMap(obj.Spec)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to decode spec into map form: %w", err)
	}

	var rec specRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rec,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("ingest: failed to decode spec: %w", err)
	}

	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("ingest: declaration %q failed validation: %w", obj.Name, err)
	}

	schedules := make([]schedulestore.AppSchedule, 0, len(rec.Apps))
	for _, app := range rec.Apps {
		windows := make([]schedulestore.Window, 0, len(app.Schedules))
		for _, sched := range app.Schedules {
			start, err := clock.ParseTimeOfDay(sched.Start)
			if err != nil {
				return nil, fmt.Errorf("ingest: declaration %q app %q: %w", obj.Name, app.Name, err)
			}

			windows = append(windows, schedulestore.Window{
				Start: start,
				Duration: clock.Duration{
					Hours:   sched.TotalDuration.Hours,
					Minutes: sched.TotalDuration.Minutes,
				},
				Days:                 sched.Days,
				TargetMinReplicas:    sched.TargetMinReplicas,
				ScaleType:            sched.ScaleType,
				ScaleDurationMinutes: sched.ScaleDuration.Minutes,
			})
		}

		schedules = append(schedules, schedulestore.AppSchedule{
			Key:                schedulestore.Key{Env: rec.Env, App: app.Name},
			DefaultMinReplicas: app.DefaultMinReplicas,
			Windows:            windows,
		})
	}

	return schedules, nil
}

// toMap round-trips v through encoding/json into a map[string]interface{},
// the shape mapstructure decodes from.
func toMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
