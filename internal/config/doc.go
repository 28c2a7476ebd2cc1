// Package config provides layered configuration for mermaidflow.
//
// Configuration is assembled from three layers, higher layers overriding
// lower ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← MERMAIDFLOW_* (highest priority)
//	├─────────────────────────────┤
//	│  2. Config File             │  ← mermaidflow.toml / .yaml / .json
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Each layer is a nested map. Layers are deep merged and the result is
// decoded into a typed Config with mapstructure. Duration settings accept
// Go duration strings ("300ms", "1s").
//
// # Environment Variables
//
// Any variable starting with MERMAIDFLOW_ is mapped to a setting path:
// MERMAIDFLOW_EDITOR_COMMIT_DELAY becomes editor.commitDelay. A few
// variables have explicit mappings, for example MERMAIDFLOW_GEMINI_API_KEY
// for ai.apiKey.
//
// # Live Reload
//
// Watch observes the config file with fsnotify and reloads it after writes
// settle:
//
//	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
//	    if err != nil {
//	        logger.Warn("config reload failed", zap.Error(err))
//	        return
//	    }
//	    apply(cfg)
//	})
package config
