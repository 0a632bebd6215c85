package util

import (
	"os/exec"
	"runtime"
)

// browserCommands 各平台打开 URL 的候选命令，按顺序尝试
func browserCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 在 Windows 7 上比 cmd /c start 更稳定
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		return [][]string{
			{"xdg-open", url},
			{"sensible-browser", url},
			{"google-chrome", url},
			{"firefox", url},
		}
	}
}

// OpenBrowser 用系统默认浏览器打开 url，全部候选失败时返回第一个错误
func OpenBrowser(url string) error {
	var firstErr error
	for _, args := range browserCommands(runtime.GOOS, url) {
		err := exec.Command(args[0], args[1:]...).Start()
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
