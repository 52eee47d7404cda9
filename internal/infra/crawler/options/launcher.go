package options

import (
	"strconv"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

type LauncherOption func(l *launcher.Launcher)

// CreateLauncher 创建rod启动器
// userMode为true时复用本机已安装浏览器的用户配置(可保留登录态)
func CreateLauncher(userMode bool, opts ...LauncherOption) *launcher.Launcher {
	var l *launcher.Launcher
	if userMode {
		l = launcher.NewUserMode()
	} else {
		l = launcher.New()
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func WithBin(bin string) LauncherOption {
	return func(l *launcher.Launcher) {
		if bin != "" {
			l.Bin(bin)
		}
	}
}

func WithUserDataDir(dir string) LauncherOption {
	return func(l *launcher.Launcher) {
		if dir != "" {
			l.UserDataDir(dir)
		}
	}
}

func WithHeadless(headless bool) LauncherOption {
	return func(l *launcher.Launcher) {
		l.Headless(headless)
	}
}

// WithDisableBlinkFeatures 例如 "AutomationControlled", 隐藏 navigator.webdriver
func WithDisableBlinkFeatures(features string) LauncherOption {
	return func(l *launcher.Launcher) {
		if features != "" {
			l.Set(flags.Flag("disable-blink-features"), features)
		}
	}
}

func WithIncognito(incognito bool) LauncherOption {
	return func(l *launcher.Launcher) {
		if incognito {
			l.Set(flags.Flag("incognito"))
		}
	}
}

func WithDisableDevShmUsage(disable bool) LauncherOption {
	return func(l *launcher.Launcher) {
		if disable {
			l.Set(flags.Flag("disable-dev-shm-usage"))
		}
	}
}

func WithNoSandbox(noSandbox bool) LauncherOption {
	return func(l *launcher.Launcher) {
		l.NoSandbox(noSandbox)
	}
}

func WithUserAgent(userAgent string) LauncherOption {
	return func(l *launcher.Launcher) {
		if userAgent != "" {
			l.Set(flags.Flag("user-agent"), userAgent)
		}
	}
}

func WithLeakless(leakless bool) LauncherOption {
	return func(l *launcher.Launcher) {
		l.Leakless(leakless)
	}
}

func WithDisableBackgroundNetworking(disable bool) LauncherOption {
	return func(l *launcher.Launcher) {
		if disable {
			l.Set(flags.Flag("disable-background-networking"))
		}
	}
}

func WithDisableBackgroundTimerThrottling(disable bool) LauncherOption {
	return func(l *launcher.Launcher) {
		if disable {
			l.Set(flags.Flag("disable-background-timer-throttling"))
		}
	}
}

func WithRemoteDebuggingPort(port int) LauncherOption {
	return func(l *launcher.Launcher) {
		if port > 0 {
			l.RemoteDebuggingPort(port)
		}
	}
}

func WithWindowSize(width, height int) LauncherOption {
	return func(l *launcher.Launcher) {
		if width > 0 && height > 0 {
			l.Set(flags.Flag("window-size"), strconv.Itoa(width)+","+strconv.Itoa(height))
		}
	}
}
