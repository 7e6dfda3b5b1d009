package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lsds/hcomm/srcs/go/utils"
)

const (
	DebugEnvKey             = `HCOMM_CONFIG_DEBUG`
	EnableMonitoringEnvKey  = `HCOMM_CONFIG_ENABLE_MONITORING`
	LogLevelEnvKey          = `HCOMM_CONFIG_LOG_LEVEL`
	MonitoringAddrEnvKey    = `HCOMM_CONFIG_MONITORING_ADDR`
	DeviceMemoryLimitEnvKey = `HCOMM_CONFIG_DEVICE_MEMORY_LIMIT`
	ConnRetryCountEnvKey    = `HCOMM_CONFIG_CONN_RETRY_COUNT`
	ConnRetryPeriodEnvKey   = `HCOMM_CONFIG_CONN_RETRY_PERIOD`
)

var ConfigEnvKeys = []string{
	DebugEnvKey,
	EnableMonitoringEnvKey,
	LogLevelEnvKey,
	MonitoringAddrEnvKey,
	DeviceMemoryLimitEnvKey,
	ConnRetryCountEnvKey,
	ConnRetryPeriodEnvKey,
}

var (
	Debug             = false
	EnableMonitoring  = false
	LogLevel          = `INFO`
	MonitoringAddr    = `:9100`
	DeviceMemoryLimit = 0
	ConnRetryCount    = 500
	ConnRetryPeriod   = 200 * time.Millisecond
)

func init() {
	if val := os.Getenv(DebugEnvKey); len(val) > 0 {
		Debug = isTrue(val)
	}
	if val := os.Getenv(EnableMonitoringEnvKey); len(val) > 0 {
		EnableMonitoring = isTrue(val)
	}
	if val := os.Getenv(LogLevelEnvKey); len(val) > 0 {
		LogLevel = strings.ToUpper(val)
	}
	if val := os.Getenv(MonitoringAddrEnvKey); len(val) > 0 {
		MonitoringAddr = val
	}
	if val := os.Getenv(DeviceMemoryLimitEnvKey); len(val) > 0 {
		DeviceMemoryLimit = parseInt(val)
	}
	if val := os.Getenv(ConnRetryCountEnvKey); len(val) > 0 {
		ConnRetryCount = parseInt(val)
	}
	if val := os.Getenv(ConnRetryPeriodEnvKey); len(val) > 0 {
		ConnRetryPeriod = parseDuration(val)
	}
}

func isTrue(val string) bool {
	return val == "true" || val == "1"
}

func parseInt(val string) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		utils.ExitErr(err)
	}
	return n
}

func parseDuration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		utils.ExitErr(err)
	}
	return d
}
