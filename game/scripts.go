package game

import (
	"encoding/json"
	"fmt"

	"github.com/njyeung/sprunki/fullscreen"
	"github.com/pkg/errors"
)

const (
	sectionID = "game_section"
	iframeID  = "game_iframe"
	introID   = "game_intro"

	// bindingName is exposed to the page through Runtime.addBinding
	bindingName = "sprunkiNotify"

	AudioAction    = "user_interaction"
	IOSAudioAction = "ios_user_interaction"
)

// listenScript runs before any page script and reports state the Go side
// cannot observe by itself
var listenScript = fmt.Sprintf(`(() => {
	const send = (type, active) => {
		if (typeof window.%[1]s === 'function') {
			window.%[1]s(JSON.stringify({type: type, active: !!active}));
		}
	};
	document.addEventListener('fullscreenchange', () => send('fullscreenchange', document.fullscreenElement));
	document.addEventListener('visibilitychange', () => {
		if (document.visibilityState === 'hidden') send('hidden', true);
	});
	window.addEventListener('pagehide', () => send('navigation', true));
	window.addEventListener('gameStarted', () => send('started', true));
})()`, bindingName)

// playScript hides the intro and shows the game frame. Returns false when
// the page has no game.
var playScript = fmt.Sprintf(`(() => {
	const intro = document.getElementById(%q);
	const frame = document.getElementById(%q);
	if (!intro || !frame) return false;
	intro.classList.add('hidden');
	frame.classList.remove('hidden');
	window.dispatchEvent(new Event('gameStarted'));
	return true;
})()`, introID, iframeID)

func audioScript(action string) string {
	msg, _ := json.Marshal(map[string]string{"type": "ENABLE_AUDIO", "action": action})
	return fmt.Sprintf(`(() => {
	const frame = document.getElementById(%q);
	if (!frame || !frame.contentWindow) return false;
	frame.contentWindow.postMessage(%s, '*');
	return true;
})()`, iframeID, msg)
}

// applyScript returns the script moving the page into mode. Every script
// evaluates to true when the game section exists.
func applyScript(mode fullscreen.Mode) (string, error) {
	var body string
	switch mode {
	case fullscreen.Normal:
		body = `
	section.classList.remove('fullscreen');
	if (frame) frame.classList.remove('ios-fullscreen');
	document.body.style.overflow = '';
	if (document.fullscreenElement) document.exitFullscreen().catch(() => {});`
	case fullscreen.Pseudo:
		body = `
	section.classList.add('fullscreen');
	document.body.style.overflow = 'hidden';`
	case fullscreen.Native:
		body = `
	if (!section.requestFullscreen) return false;
	section.requestFullscreen().catch(() => {});`
	case fullscreen.IOS:
		body = `
	if (frame) frame.classList.add('ios-fullscreen');
	section.classList.add('fullscreen');
	document.body.style.overflow = 'hidden';`
	default:
		return "", errors.Errorf("unknown fullscreen mode %d", mode)
	}
	return fmt.Sprintf(`(() => {
	const section = document.getElementById(%q);
	const frame = document.getElementById(%q);
	if (!section) return false;%s
	return true;
})()`, sectionID, iframeID, body), nil
}

const lockScript = `(async () => {
	if (!screen.orientation || !screen.orientation.lock) throw new Error('orientation lock unsupported');
	await screen.orientation.lock('landscape');
	return true;
})()`

const unlockScript = `(() => {
	if (screen.orientation && screen.orientation.unlock) screen.orientation.unlock();
	return true;
})()`
