package config

import (
	"fmt"
	"os"
)

func Template() string {
	return bridgeTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(bridgeTemplate), 0o600)
}

const bridgeTemplate = `# hslremote bridge configuration

[runtime]
executable = 'C:\Program Files (x86)\HAMILTON\Bin\HxRun.exe'
# directory holding HSLremote.hsl and the toSystem/fromSystem exchange dirs
root = 'C:\Program Files (x86)\HAMILTON\HSL\HSLremote'
start_minimized = false
shutdown_timeout = "30s"

[channel]
# "0s" waits for each response until it arrives
response_timeout = "0s"
poll_initial = "10ms"
poll_max = "200ms"
read_retries = 5
watch = true

[resources]
converter = 'C:\Program Files (x86)\HAMILTON\Bin\HxCfgFilConverter.exe'
work_dir = ""
output_dir = "bindings"
package = "bindings"
cache_ttl = "10m"
`
