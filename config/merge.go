package config

// mergeConfigs merges override configuration into base
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Storage = mergeStorage(result.Storage, override.Storage)
	result.Search = mergeSearch(result.Search, override.Search)
	result.Daemon = mergeDaemon(result.Daemon, override.Daemon)

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(result.Extensions)+len(override.Extensions))
		for key, value := range result.Extensions {
			merged[key] = value
		}
		for key, value := range override.Extensions {
			// If both base and override have the same extension key, merge them
			if baseValue, exists := merged[key]; exists {
				if baseMap, baseOk := baseValue.(map[string]interface{}); baseOk {
					if overrideMap, overrideOk := value.(map[string]interface{}); overrideOk {
						mergedMap := make(map[string]interface{})
						for k, v := range baseMap {
							mergedMap[k] = v
						}
						for k, v := range overrideMap {
							mergedMap[k] = v
						}
						merged[key] = mergedMap
						continue
					}
				}
			}
			// Otherwise just replace
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergeStorage(base, override StorageConfig) StorageConfig {
	result := base

	if override.ScenariosFile != "" {
		result.ScenariosFile = override.ScenariosFile
	}
	if override.HistoryDB != "" {
		result.HistoryDB = override.HistoryDB
	}
	if override.History != nil {
		result.History = override.History
	}

	return result
}

func mergeSearch(base, override SearchConfig) SearchConfig {
	result := base

	if override.Timeout != "" {
		result.Timeout = override.Timeout
	}
	if override.Workers != 0 {
		result.Workers = override.Workers
	}
	// Exclude lists replace rather than append so a project can clear them.
	if override.Exclude != nil {
		result.Exclude = override.Exclude
	}

	return result
}

func mergeDaemon(base, override DaemonConfig) DaemonConfig {
	result := base

	if override.Socket != "" {
		result.Socket = override.Socket
	}
	if override.WatchDebounceMs != 0 {
		result.WatchDebounceMs = override.WatchDebounceMs
	}

	return result
}
