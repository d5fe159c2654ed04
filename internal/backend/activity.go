package backend

import "encoding/json"

const ActivityRunning = "running"

type Activity struct {
	ID        FlexID `json:"id"`
	Status    string `json:"status"`
	IndexSort int    `json:"index_sort"`
	Name      string `json:"activity_name"`
}

// PickActivity returns the running activity with the highest index_sort,
// else the first listed activity.
func PickActivity(list []Activity) (Activity, bool) {
	if len(list) == 0 {
		return Activity{}, false
	}
	best := -1
	for i, a := range list {
		if a.Status != ActivityRunning {
			continue
		}
		if best < 0 || a.IndexSort > list[best].IndexSort {
			best = i
		}
	}
	if best < 0 {
		return list[0], true
	}
	return list[best], true
}

func decodeActivities(body []byte) ([]Activity, error) {
	var list []Activity
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Data  []Activity `json:"data"`
		Items []Activity `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return wrapped.Items, nil
}
