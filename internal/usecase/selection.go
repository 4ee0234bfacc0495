package usecase

import (
	"fmt"

	"NewsTranslator/internal/domain"
	"NewsTranslator/internal/ports"
)

// ProviderChoice is the outcome of provider selection.
type ProviderChoice struct {
	Kind       domain.ProviderKind
	Translator ports.Translator
	Reason     string
}

// SelectProvider picks the single active provider for the process. Local
// models are excluded without local compute, falling back to the cloud LLM
// and then to machine translation. A requested provider that was not built,
// typically for lack of a credential, resolves to none.
func SelectProvider(requested domain.ProviderKind, exec domain.ExecutionContext, available map[domain.ProviderKind]ports.Translator) ProviderChoice {
	if requested == domain.ProviderNone || requested == "" {
		return ProviderChoice{Kind: domain.ProviderNone, Reason: "translation provider set to none"}
	}

	if requested == domain.ProviderLocalModel && !exec.HasLocalCompute {
		for _, fallback := range []domain.ProviderKind{domain.ProviderCloudLLM, domain.ProviderTraditionalMT} {
			if t := available[fallback]; t != nil {
				return ProviderChoice{
					Kind:       fallback,
					Translator: t,
					Reason:     fmt.Sprintf("local model unavailable without local compute, using %s", fallback),
				}
			}
		}
		return ProviderChoice{
			Kind:   domain.ProviderNone,
			Reason: "local model unavailable without local compute and no cloud provider configured",
		}
	}

	t := available[requested]
	if t == nil {
		return ProviderChoice{
			Kind:   domain.ProviderNone,
			Reason: fmt.Sprintf("%s requested but not configured (missing credential?)", requested),
		}
	}
	return ProviderChoice{Kind: requested, Translator: t, Reason: fmt.Sprintf("using %s", t.Name())}
}
