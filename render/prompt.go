package render

import (
	"github.com/lexandro/promptattach/optimize"
	"github.com/lexandro/promptattach/view"
)

// Prompt renders text and runs the optimizer over the result. The optimizer
// never fails the render; a fault is logged and the unoptimized text returned.
func (e *Engine) Prompt(name, text string, namespace map[string]view.View, vars map[string]any, options optimize.Options) (optimize.Result, error) {
	out, err := e.Render(name, text, namespace, vars)
	if err != nil {
		return optimize.Result{}, err
	}
	result := optimize.Optimize(out.Text, out.References, options)
	if e.Logger != nil {
		if result.Fault != nil {
			e.Logger.Debug("optimizer fell back to inline prompt", "template", name, "fault", result.Fault)
		} else {
			e.Logger.Debug("prompt optimized",
				"template", name,
				"references", len(out.References),
				"relocated", result.Relocated(),
				"appendix", len(result.Appendix),
			)
		}
	}
	return result, nil
}
