package conf

import (
	"github.com/fsnotify/fsnotify"

	"github.com/safetrack/safetrack/internal/logger"
)

// Watch reloads the config file whenever it changes on disk and passes the new,
// validated settings to onChange. Invalid edits are logged and ignored so the
// previous settings stay active.
func Watch(onChange func(*Settings)) {
	settingsMutex.RLock()
	v := settingsViper
	settingsMutex.RUnlock()

	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	log := logger.Global().Module("conf")

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		settings, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change",
				logger.String("path", e.Name),
				logger.Error(err))
			return
		}

		settingsMutex.Lock()
		settingsInstance = settings
		settingsMutex.Unlock()

		log.Info("config reloaded", logger.String("path", e.Name))
		if onChange != nil {
			onChange(settings)
		}
	})
	v.WatchConfig()
}
