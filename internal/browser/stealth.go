package browser

// stealthScript runs before any page script in the context. It hides
// the automation fingerprints Chromium exposes under headless launch.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {
	get: () => undefined
});

Object.defineProperty(navigator, 'plugins', {
	get: () => [1, 2, 3, 4, 5]
});

Object.defineProperty(navigator, 'languages', {
	get: () => ['en-US', 'en']
});

window.chrome = window.chrome || { runtime: {} };

const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications'
		? Promise.resolve({ state: Notification.permission })
		: originalQuery(parameters)
);
`
