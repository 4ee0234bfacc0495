package config

import (
	"os"

	"NewsTranslator/internal/domain"
)

// hostedMarkers are set by hosted runtimes that have no local model server.
var hostedMarkers = []string{"SPACE_ID", "K_SERVICE", "AWS_LAMBDA_FUNCTION_NAME", "DYNO"}

// DetectExecutionContext resolves localCompute (auto, true or false) once at
// startup. Auto assumes local compute unless a hosted marker is present.
func DetectExecutionContext(cfg TranslationConfig, lookup func(string) (string, bool)) domain.ExecutionContext {
	switch cfg.LocalCompute {
	case "true":
		return domain.ExecutionContext{HasLocalCompute: true}
	case "false":
		return domain.ExecutionContext{HasLocalCompute: false}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, marker := range hostedMarkers {
		if v, ok := lookup(marker); ok && v != "" {
			return domain.ExecutionContext{HasLocalCompute: false}
		}
	}
	return domain.ExecutionContext{HasLocalCompute: true}
}
