package program

import "fmt"

// TaskKey identifies one of the fixed daily tasks. The values are part of
// the remote wire contract and must not change.
type TaskKey string

const (
	TaskWorkout1        TaskKey = "workout1"
	TaskWorkout2Outdoor TaskKey = "workout2_outdoor"
	TaskDiet            TaskKey = "diet"
	TaskWater           TaskKey = "water"
	TaskReading         TaskKey = "reading"
	TaskProgressPhoto   TaskKey = "progress_photo"
)

type Task struct {
	Key   TaskKey
	Label string
}

// Tasks is the fixed task list, in display order.
var Tasks = []Task{
	{Key: TaskWorkout1, Label: "45-min workout #1"},
	{Key: TaskWorkout2Outdoor, Label: "45-min workout #2 (outdoors)"},
	{Key: TaskDiet, Label: "Follow your diet (no cheat, no alcohol)"},
	{Key: TaskWater, Label: "Drink 1 gallon of water"},
	{Key: TaskReading, Label: "Read 10 pages (non-fiction)"},
	{Key: TaskProgressPhoto, Label: "Progress photo"},
}

func (k TaskKey) Valid() bool {
	for _, t := range Tasks {
		if t.Key == k {
			return true
		}
	}
	return false
}

func (k TaskKey) Label() string {
	for _, t := range Tasks {
		if t.Key == k {
			return t.Label
		}
	}
	return string(k)
}

// ParseTaskKey validates s against the fixed task list.
func ParseTaskKey(s string) (TaskKey, error) {
	k := TaskKey(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown task %q", s)
	}
	return k, nil
}
