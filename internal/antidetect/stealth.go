// internal/antidetect/stealth.go
package antidetect

// StealthScript is injected into every new document before page scripts
// run. It masks the automation markers that interstitial pages check:
// navigator.webdriver, empty plugin and language lists, and the headless
// Chrome permissions quirk.
const StealthScript = `
(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

	Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en'],
	});

	Object.defineProperty(navigator, 'plugins', {
		get: () => [
			{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
			{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
			{ name: 'Native Client', filename: 'internal-nacl-plugin' },
		],
	});

	window.chrome = window.chrome || { runtime: {} };

	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) =>
		parameters.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: originalQuery(parameters);
})();
`

// ScrollScript nudges the page through a few viewport-sized scroll steps
// to trigger lazy-loaded track rows, then returns to the top.
const ScrollScript = `
(async () => {
	const step = window.innerHeight;
	const total = Math.max(document.body.scrollHeight, step * 3);
	for (let y = 0; y < total; y += step) {
		window.scrollTo(0, y);
		await new Promise(r => setTimeout(r, 250 + Math.random() * 250));
	}
	window.scrollTo(0, 0);
})();
`
