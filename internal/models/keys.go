// -----------------------------------------------------------------------
// Scheduling Keys - composite (group, name) identity for jobs and triggers
// -----------------------------------------------------------------------

package models

import "fmt"

// DefaultGroup is used when a key is created without an explicit group.
const DefaultGroup = "DEFAULT"

// JobKey uniquely identifies a job within the job collection.
type JobKey struct {
	Group string `json:"group"`
	Name  string `json:"name"`
}

// NewJobKey creates a job key in the default group.
func NewJobKey(name string) JobKey {
	return JobKey{Group: DefaultGroup, Name: name}
}

// NewJobKeyWithGroup creates a job key in the given group.
func NewJobKeyWithGroup(group, name string) JobKey {
	if group == "" {
		group = DefaultGroup
	}
	return JobKey{Group: group, Name: name}
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s.%s", k.Group, k.Name)
}

// IsZero reports whether the key has not been set.
func (k JobKey) IsZero() bool {
	return k.Group == "" && k.Name == ""
}

// TriggerKey uniquely identifies a trigger within the trigger collection.
type TriggerKey struct {
	Group string `json:"group"`
	Name  string `json:"name"`
}

// NewTriggerKey creates a trigger key in the default group.
func NewTriggerKey(name string) TriggerKey {
	return TriggerKey{Group: DefaultGroup, Name: name}
}

// NewTriggerKeyWithGroup creates a trigger key in the given group.
func NewTriggerKeyWithGroup(group, name string) TriggerKey {
	if group == "" {
		group = DefaultGroup
	}
	return TriggerKey{Group: group, Name: name}
}

func (k TriggerKey) String() string {
	return fmt.Sprintf("%s.%s", k.Group, k.Name)
}

// IsZero reports whether the key has not been set.
func (k TriggerKey) IsZero() bool {
	return k.Group == "" && k.Name == ""
}
