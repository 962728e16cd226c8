package dashboard

import (
	"fmt"

	"github.com/loftside/swingbridge/internal/page"
)

// scriptAthleteLinks collects anchors whose link text contains the name,
// case-insensitively. Id extraction from hrefs stays on the Go side where
// the pattern is testable.
func scriptAthleteLinks(name string) string {
	return fmt.Sprintf(`(() => {
	const needle = %s;
	const links = [];
	for (const a of document.querySelectorAll('a[href]')) {
		const text = (a.innerText || '').trim();
		if (text.toLowerCase().includes(needle)) {
			links.push({ href: a.getAttribute('href'), text: text });
		}
	}
	return links;
})()`, page.Arg(normalizeName(name)))
}

// scriptInjectVideo fetches the source video inside the page, wraps it in
// a File, and hands it to the file input the way a user drop would. The
// promise resolves only after the change event fires.
func scriptInjectVideo(fileSelector, videoURL string) string {
	return fmt.Sprintf(`(async () => {
	const input = document.querySelector(%s);
	if (!input) return false;
	const res = await fetch(%s);
	if (!res.ok) throw new Error('video fetch failed: ' + res.status);
	const blob = await res.blob();
	const file = new File([blob], 'swing.mp4', { type: blob.type || 'video/mp4' });
	const transfer = new DataTransfer();
	transfer.items.add(file);
	input.files = transfer.files;
	input.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, page.Arg(fileSelector), page.Arg(videoURL))
}

// scriptSessionRows walks session links and pairs each with a date-like
// substring from its row text.
func scriptSessionRows() string {
	return `(() => {
	const datePattern = /\d{4}-\d{2}-\d{2}|\d{1,2}[\/.-]\d{1,2}[\/.-]\d{2,4}/;
	const idPattern = /\/(?:sessions|swings)\/([A-Za-z0-9-]+)/;
	const rows = [];
	for (const a of document.querySelectorAll('a[href]')) {
		const href = a.getAttribute('href') || '';
		const idMatch = href.match(idPattern);
		if (!idMatch) continue;
		const rowText = ((a.closest('tr, li, .row') || a).innerText || '').trim();
		const dateMatch = rowText.match(datePattern);
		rows.push({
			sessionId: idMatch[1],
			href: href,
			date: dateMatch ? dateMatch[0] : '',
			title: rowText.slice(0, 120),
		});
	}
	return rows;
})()`
}

// scriptDownloadReference returns the most recent export link the page
// offers, preferring explicit download anchors.
func scriptDownloadReference() string {
	return `(() => {
	const download = document.querySelector('a[download]');
	if (download) return download.href;
	const anchors = Array.from(document.querySelectorAll('a[href]'));
	for (let i = anchors.length - 1; i >= 0; i--) {
		const href = anchors[i].href || '';
		if (href.includes('.csv') || href.includes('export')) return href;
	}
	return null;
})()`
}
