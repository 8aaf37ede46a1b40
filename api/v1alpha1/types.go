// Package v1alpha1 contains API Schema definitions for the scheduling
// API group.
// +kubebuilder:object:generate=true
// +groupName=scheduling.example.com
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +genclient
// +genclient:nonNamespaced
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true

// ScheduledScaling is a cluster-scoped declaration of time-windowed
// minReplicas floors for a set of applications in a given environment.
// +k8s:deepcopy-gen=true
// +kubebuilder:resource:scope=Cluster,categories=all,shortName=ssc;schedscale
// +kubebuilder:printcolumn:name="Env",type=string,JSONPath=`.spec.env`
// +kubebuilder:printcolumn:name="Apps",type=integer,JSONPath=`.status.appCount`,priority=1
// +kubebuilder:printcolumn:name="Active",type=integer,JSONPath=`.status.activeAppCount`
// +kubebuilder:subresource:status
type ScheduledScaling struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ScheduledScalingSpec `json:"spec"`
	// +optional
	Status ScheduledScalingStatus `json:"status"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// ScheduledScalingList is a list of ScheduledScaling objects.
// +k8s:deepcopy-gen=true
type ScheduledScalingList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []ScheduledScaling `json:"items"`
}

// ScheduledScalingSpec is the spec part of a ScheduledScaling.
// +k8s:deepcopy-gen=true
type ScheduledScalingSpec struct {
	// Env is the environment label joined with each app name to form
	// the env-app composite key used by the Schedule Store.
	Env string `json:"env"`

	// Apps is the list of per-application schedule declarations
	// carried by this object.
	Apps []AppScheduleSpec `json:"apps"`
}

// AppScheduleSpec is a single application's default floor plus its
// ordered list of time windows.
// +k8s:deepcopy-gen=true
type AppScheduleSpec struct {
	// Name is the application name; joined with Spec.Env to form the
	// env-app composite key.
	Name string `json:"name"`

	// DefaultMinReplicas is the floor restored outside any active
	// window.
	DefaultMinReplicas int64 `json:"defaultMinReplicas"`

	// Schedules is the ordered list of windows for this application.
	Schedules []ScheduleSpec `json:"schedules"`
}

// ScheduleSpec describes one scaling window.
// +k8s:deepcopy-gen=true
type ScheduleSpec struct {
	// Start is the window's start of day, formatted "HH:MM" in the
	// policy timezone.
	Start string `json:"start"`

	// ScaleType discriminates which schedule variants activate the
	// window. Only "custom" is active; other values are accepted and
	// stored but never activate (reserved for future variants).
	ScaleType string `json:"scaleType"`

	// TotalDuration is the window's total length.
	TotalDuration DurationSpec `json:"totalDuration"`

	// ScaleDuration is carried for wire compatibility with the
	// declarations this schema evolved from. It is never consulted by
	// the Decision Engine; only ScaleType == "custom" activates a
	// window, and "custom" windows ramp instantly at TotalDuration's
	// boundaries.
	// +optional
	ScaleDuration ScaleDurationSpec `json:"scaleDuration,omitempty"`

	// TargetMinReplicas is the floor applied while the window is
	// active.
	TargetMinReplicas int64 `json:"targetMinReplicas"`

	// Days is the non-empty set of day-selectors this window is
	// active on.
	Days []DaySelector `json:"days"`
}

// DurationSpec is a non-negative hours+minutes offset.
// +k8s:deepcopy-gen=true
type DurationSpec struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ScaleDurationSpec carries the inert scale-duration field forward
// from the declarations this schema evolved from, for wire
// compatibility with clients that still set it.
// +k8s:deepcopy-gen=true
type ScaleDurationSpec struct {
	Minutes int `json:"minutes"`
}

// DaySelector is a day-of-week selector for a ScheduleSpec.
// +kubebuilder:validation:Enum=everyday;weekday;weekend;sun;mon;tue;wed;thu;fri;sat
type DaySelector string

const (
	Everyday  DaySelector = "everyday"
	Weekday   DaySelector = "weekday"
	Weekend   DaySelector = "weekend"
	Sunday    DaySelector = "sun"
	Monday    DaySelector = "mon"
	Tuesday   DaySelector = "tue"
	Wednesday DaySelector = "wed"
	Thursday  DaySelector = "thu"
	Friday    DaySelector = "fri"
	Saturday  DaySelector = "sat"
)

// ScaleType values. Only ScaleTypeCustom activates a window.
const (
	ScaleTypeCustom ScaleType = "custom"
)

// ScaleType is the string type used for ScheduleSpec.ScaleType
// comparisons. ScheduleSpec stores the raw string so unknown future
// values round-trip without validation failures.
type ScaleType = string

// ScheduledScalingStatus is the status section of a ScheduledScaling.
// +k8s:deepcopy-gen=true
type ScheduledScalingStatus struct {
	// AppCount is the number of applications this declaration lists,
	// surfaced as the "Apps" kubectl printer column.
	// +optional
	AppCount int `json:"appCount,omitempty"`

	// ActiveAppCount is how many of those applications had at least
	// one active window when the reconciler last applied an ADDED or
	// MODIFIED event for this object, surfaced as the "Active" kubectl
	// printer column. Ticks do not refresh it.
	// +optional
	ActiveAppCount int `json:"activeAppCount,omitempty"`

	// ActiveApps lists the env-app keys currently inside an active
	// window, last time the reconciler observed them.
	// +optional
	ActiveApps []string `json:"activeApps,omitempty"`
}
