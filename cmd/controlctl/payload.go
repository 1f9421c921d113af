package main

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const APIVersion = "v0.1"

// number of key segments following a map field in a field mask
var mapKeys = map[string]int{
	"workloads":      1,
	"configs":        1,
	"agents":         1,
	"workloadStates": 3,
}

// NormalizeMask converts the field names of a dotted field mask to lower camel case.
// Map keys such as workload and agent names are kept as they are:
// desired_state.workloads.dynamic_nginx becomes desiredState.workloads.dynamic_nginx.
func NormalizeMask(mask string) string {
	if mask == "" {
		return ""
	}
	segments := strings.Split(mask, ".")
	keys := 0
	for i, segment := range segments {
		if keys > 0 {
			keys--
			continue
		}
		segments[i] = strcase.LowerCamelCase(segment)
		keys = mapKeys[segments[i]]
	}
	return strings.Join(segments, ".")
}

func normalizeMasks(masks []string) []interface{} {
	result := make([]interface{}, 0, len(masks))
	for _, mask := range masks {
		if mask = NormalizeMask(mask); mask != "" {
			result = append(result, mask)
		}
	}
	return result
}

// CompleteStateRequest builds the payload of a request for the complete state.
// Without masks the whole state is requested.
func CompleteStateRequest(masks []string) (*anypb.Any, error) {
	return pack(map[string]interface{}{
		"completeStateRequest": map[string]interface{}{
			"fieldMask": normalizeMasks(masks),
		},
	})
}

type Workload struct {
	Name          string
	Runtime       string
	Agent         string
	RestartPolicy string
	RuntimeConfig string
}

// UpdateStateRequest builds the payload of a request adding or replacing w
// in the desired state.
func UpdateStateRequest(w Workload) (*anypb.Any, error) {
	if w.Name == "" {
		return nil, fmt.Errorf("workload name is required")
	}
	workload := map[string]interface{}{
		"runtime":       w.Runtime,
		"agent":         w.Agent,
		"runtimeConfig": w.RuntimeConfig,
	}
	if w.RestartPolicy != "" {
		workload["restartPolicy"] = strcase.UpperSnakeCase(w.RestartPolicy)
	}
	return pack(map[string]interface{}{
		"updateStateRequest": map[string]interface{}{
			"newState": map[string]interface{}{
				"desiredState": map[string]interface{}{
					"apiVersion": APIVersion,
					"workloads": map[string]interface{}{
						w.Name: workload,
					},
				},
			},
			"updateMask": []interface{}{"desiredState.workloads." + w.Name},
		},
	})
}

func pack(fields map[string]interface{}) (*anypb.Any, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return anypb.New(s)
}
