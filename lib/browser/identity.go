package browser

import (
	"math/rand"
	"strings"

	fakeua "github.com/EDDYCJY/fake-useragent"
)

// Identity is the set of observable traits a session presents. A fresh
// one is rolled for every session so consecutive sessions do not share
// a fingerprint.
type Identity struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	DeviceScale    float64
	HasTouch       bool
	Locale         string
	Timezone       string
	Latitude       float64
	Longitude      float64
}

var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

var deviceScales = []float64{1, 1.25, 1.5, 2}

func randomUserAgent() string {
	// half the time draw from the live rotating pool, the rest from the
	// pinned list so a pool outage never blocks session creation
	if rand.Intn(2) == 0 {
		if ua := fakeua.Computer(); ua != "" && !strings.Contains(ua, "Mobile") {
			return ua
		}
	}
	return desktopUserAgents[rand.Intn(len(desktopUserAgents))]
}

func randomIdentity() Identity {
	return Identity{
		UserAgent:      randomUserAgent(),
		ViewportWidth:  1280,
		ViewportHeight: 1080,
		DeviceScale:    deviceScales[rand.Intn(len(deviceScales))],
		HasTouch:       rand.Float64() < 0.3,
		Locale:         "en-US",
		Timezone:       "America/New_York",
		// somewhere on the US east coast
		Latitude:  38 + rand.Float64()*4,
		Longitude: -75 + rand.Float64()*4,
	}
}

// Patches for the fingerprint probes the stealth bundle does not
// already neutralize: plugin and language lists, the notification
// permission probe, and a tiny amount of canvas noise.
const fingerprintPatches = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', {
		get: () => [
			{ name: 'Chrome PDF Plugin' },
			{ name: 'Chrome PDF Viewer' },
			{ name: 'Native Client' },
		],
	});
	Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en', 'es'],
	});

	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: originalQuery(parameters)
	);

	const toDataURL = HTMLCanvasElement.prototype.toDataURL;
	HTMLCanvasElement.prototype.toDataURL = function (type) {
		const context = this.getContext('2d');
		if (context) {
			const shift = Math.floor(Math.random() * 10) - 5;
			const data = context.getImageData(0, 0, this.width, this.height);
			for (let i = 0; i < data.data.length; i += 4) {
				data.data[i] = Math.min(255, Math.max(0, data.data[i] + shift));
			}
			context.putImageData(data, 0, 0);
		}
		return toDataURL.apply(this, arguments);
	};
}`
