package dashboard

import "net/http"

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Loomwork Dashboard</title>
<style>
  :root {
    --bg: #0d1117;
    --surface: #161b22;
    --border: #30363d;
    --text: #e6edf3;
    --text-dim: #8b949e;
    --accent: #58a6ff;
    --green: #3fb950;
    --yellow: #d29922;
    --red: #f85149;
    --purple: #bc8cff;
  }
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif;
    background: var(--bg);
    color: var(--text);
    font-size: 14px;
    line-height: 1.5;
    padding: 16px;
  }
  header {
    display: flex;
    align-items: center;
    justify-content: space-between;
    margin-bottom: 16px;
    padding-bottom: 12px;
    border-bottom: 1px solid var(--border);
  }
  header h1 { font-size: 20px; font-weight: 600; }
  header h1 span { color: var(--accent); }
  .meta { font-size: 12px; color: var(--text-dim); }
  .meta .live { color: var(--green); }
  .grid {
    display: grid;
    grid-template-columns: 1fr 1fr;
    gap: 16px;
  }
  @media (max-width: 900px) { .grid { grid-template-columns: 1fr; } }
  .card {
    background: var(--surface);
    border: 1px solid var(--border);
    border-radius: 8px;
    overflow: hidden;
  }
  .card-header {
    padding: 10px 14px;
    border-bottom: 1px solid var(--border);
    font-weight: 600;
    font-size: 13px;
    text-transform: uppercase;
    letter-spacing: 0.5px;
    color: var(--text-dim);
  }
  .card-body { padding: 10px 14px; }
  .row {
    display: flex;
    align-items: baseline;
    gap: 8px;
    padding: 6px 0;
    border-bottom: 1px solid var(--border);
  }
  .row:last-child { border-bottom: none; }
  .badge {
    display: inline-block;
    padding: 1px 8px;
    border-radius: 10px;
    font-size: 11px;
    font-weight: 600;
    border: 1px solid var(--border);
    color: var(--text-dim);
  }
  .badge.todo { color: var(--text-dim); }
  .badge.in_progress { color: var(--yellow); border-color: var(--yellow); }
  .badge.review { color: var(--purple); border-color: var(--purple); }
  .badge.done { color: var(--green); border-color: var(--green); }
  .badge.human { color: var(--accent); }
  .phase {
    font-size: 16px;
    font-weight: 600;
    color: var(--accent);
    text-transform: capitalize;
  }
  .dim { color: var(--text-dim); font-size: 12px; }
  .grow { flex: 1; }
  .empty { color: var(--text-dim); font-style: italic; padding: 8px 0; }
  ul.plain { list-style: none; }
  ul.plain li { padding: 3px 0; border-bottom: 1px solid var(--border); }
  ul.plain li:last-child { border-bottom: none; }
</style>
</head>
<body>
<header>
  <h1>Loom<span>work</span></h1>
  <div class="meta"><span id="live" class="live">&#9679; live</span> &middot; <span id="updated"></span></div>
</header>
<div class="grid">
  <div class="card">
    <div class="card-header">Session</div>
    <div class="card-body">
      <div class="row"><span class="grow dim">Phase</span><span id="phase" class="phase">&mdash;</span></div>
      <div class="row"><span class="grow dim">Project</span><span id="root" class="dim">&mdash;</span></div>
    </div>
  </div>
  <div class="card">
    <div class="card-header">Design</div>
    <div class="card-body" id="design"><div class="empty">No design document</div></div>
  </div>
  <div class="card">
    <div class="card-header">Tasks</div>
    <div class="card-body" id="tasks"><div class="empty">No tasks</div></div>
  </div>
  <div class="card">
    <div class="card-header">Delegations</div>
    <div class="card-body" id="delegations"><div class="empty">No delegations</div></div>
  </div>
  <div class="card">
    <div class="card-header">Events</div>
    <div class="card-body" id="events"><div class="empty">No events</div></div>
  </div>
</div>
<script>
function esc(s) {
  return String(s == null ? '' : s).replace(/[&<>"]/g, function (c) {
    return {'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[c];
  });
}
function render(state) {
  document.getElementById('phase').textContent = state.phase || 'idle';
  document.getElementById('root').textContent = state.project_root || '';
  document.getElementById('updated').textContent = new Date(state.timestamp).toLocaleTimeString();

  var tasks = document.getElementById('tasks');
  if (state.tasks && state.tasks.length) {
    tasks.innerHTML = state.tasks.map(function (t) {
      return '<div class="row">' +
        '<span class="badge ' + esc(t.status) + '">' + esc(t.status) + '</span>' +
        '<span class="grow">' + esc(t.description) + '</span>' +
        '<span class="badge ' + esc(t.assignee) + '">' + esc(t.assignee) + '</span>' +
        '<span class="dim">' + esc(t.age) + '</span>' +
        '</div>';
    }).join('');
  } else {
    tasks.innerHTML = '<div class="empty">No tasks</div>';
  }

  var design = document.getElementById('design');
  if (state.design) {
    var d = state.design;
    design.innerHTML = '<div class="row"><span class="grow">' + esc(d.task_description) + '</span>' +
      '<span class="dim">' + esc(d.age) + '</span></div>' +
      '<p class="dim">' + esc(d.narrative) + '</p>' +
      (d.decisions && d.decisions.length
        ? '<ul class="plain">' + d.decisions.map(function (x) { return '<li>' + esc(x) + '</li>'; }).join('') + '</ul>'
        : '');
  } else {
    design.innerHTML = '<div class="empty">No design document</div>';
  }

  var dels = document.getElementById('delegations');
  if (state.delegations && state.delegations.length) {
    dels.innerHTML = state.delegations.map(function (w) {
      return '<div class="row">' +
        '<span class="grow">' + esc(w.task_id) + (w.external_id ? ' &middot; ' + esc(w.external_id) : '') + '</span>' +
        '<span class="badge">' + esc(w.status) + '</span>' +
        '<span class="dim">' + esc(w.age) + '</span>' +
        '</div>';
    }).join('');
  } else {
    dels.innerHTML = '<div class="empty">No delegations</div>';
  }

  var events = document.getElementById('events');
  if (state.events && state.events.length) {
    events.innerHTML = state.events.slice().reverse().map(function (e) {
      return '<div class="row">' +
        '<span class="badge">' + esc(e.kind) + '</span>' +
        '<span class="grow dim">' + esc(e.detail || e.task_id || '') + '</span>' +
        '<span class="dim">' + esc(e.age) + '</span>' +
        '</div>';
    }).join('');
  } else {
    events.innerHTML = '<div class="empty">No events</div>';
  }
}
function refresh() {
  fetch('/api/state').then(function (r) { return r.json(); }).then(render).catch(function () {});
}
refresh();
setInterval(refresh, 5000);
var source = new EventSource('/api/events');
source.onmessage = refresh;
source.onerror = function () {
  document.getElementById('live').textContent = '● reconnecting';
};
source.onopen = function () {
  document.getElementById('live').innerHTML = '&#9679; live';
};
</script>
</body>
</html>
`
