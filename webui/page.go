package webui

import "html/template"

type pageData struct {
	Log  template.HTML
	Busy bool
}

func newPageData(s Snapshot) pageData {
	//rendered by goldmark and render.HTML, raw markup in replies is allowed
	return pageData{Log: template.HTML(s.HTML), Busy: s.Busy}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Chatbot</title>
<script src="https://cdn.jsdelivr.net/npm/vega@5"></script>
<script src="https://cdn.jsdelivr.net/npm/vega-lite@5"></script>
<script src="https://cdn.jsdelivr.net/npm/vega-embed@6"></script>
<style>
body { font-family: sans-serif; margin: 0; display: flex; flex-direction: column; height: 100vh; }
#log { flex: 1; overflow-y: auto; padding: 1em; }
.message { margin: 0.5em 0; padding: 0.5em 1em; border-radius: 6px; max-width: 80%; }
.message.user { background: #A8C9A4; margin-left: auto; }
.message.system { background: #f0ebe3; }
.chart { width: 100%; min-height: 300px; }
.chart-error { color: #a05050; font-style: italic; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.2em 0.5em; }
form { display: flex; padding: 1em; border-top: 1px solid #ccc; }
#prompt { flex: 1; padding: 0.5em; }
#busy { padding: 0 1em; color: #7EBB81; }
</style>
</head>
<body>
<div id="log">{{.Log}}</div>
<form id="form">
<input id="prompt" autocomplete="off" placeholder="Ask about your data"{{if .Busy}} disabled{{end}}>
<span id="busy"{{if not .Busy}} hidden{{end}}>waiting for reply</span>
<button type="submit">Send</button>
</form>
<script>
const log = document.getElementById("log");
const prompt = document.getElementById("prompt");
const busy = document.getElementById("busy");

function embedCharts() {
	for (const el of log.querySelectorAll(".chart:not([data-embedded])")) {
		const src = document.getElementById(el.dataset.spec);
		if (!src) continue;
		el.dataset.embedded = "1";
		vegaEmbed(el, JSON.parse(src.textContent), {actions: false}).catch(() => {
			el.outerHTML = '<p class="chart-error">Chart could not be displayed</p>';
		});
	}
}

function apply(snap) {
	log.innerHTML = snap.html;
	prompt.disabled = snap.busy;
	busy.hidden = !snap.busy;
	embedCharts();
	log.scrollTop = log.scrollHeight;
	if (!snap.busy) prompt.focus();
}

function connect() {
	const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
	ws.onmessage = (ev) => apply(JSON.parse(ev.data));
	ws.onclose = () => setTimeout(connect, 1000);
}

document.getElementById("form").addEventListener("submit", (ev) => {
	ev.preventDefault();
	const text = prompt.value;
	if (text.trim() === "") return;
	fetch("/submit", {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify({prompt: text})})
		.then((r) => { if (r.ok) prompt.value = ""; });
});

embedCharts();
connect();
</script>
</body>
</html>
`))
