package handlers

import "strings"

func argString(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func requireString(args map[string]interface{}, key string) string {
	s, _ := argString(args, key)
	return s
}

// subredditList normalizes the two shapes verbs accept for naming one or
// more subreddits: a "subreddits" array, or a singular "subreddit" string
// that may itself contain a "+"-joined list.
func subredditList(args map[string]interface{}) []string {
	var raw []string
	if v, ok := args["subreddits"]; ok {
		if arr, ok := v.([]interface{}); ok {
			for _, e := range arr {
				if s, ok := e.(string); ok {
					raw = append(raw, s)
				}
			}
		}
	}
	if len(raw) == 0 {
		if s, ok := argString(args, "subreddit"); ok {
			raw = append(raw, s)
		}
	}

	var flattened []string
	for _, s := range raw {
		flattened = append(flattened, strings.Split(s, "+")...)
	}
	return flattened
}

func argInt(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func argFloat(args map[string]interface{}, key string, def float64) float64 {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	if n, ok := v.(float64); ok {
		return n
	}
	return def
}
