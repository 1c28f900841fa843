package server

import (
	"html/template"
	"strconv"

	"github.com/forPelevin/h8less/internal/domain/timeline"
	"github.com/forPelevin/h8less/internal/session"
	"github.com/forPelevin/h8less/internal/types"
	"github.com/forPelevin/h8less/internal/usecase"
)

const processingText = "Processing video... Please wait."

var pageFuncs = template.FuncMap{
	"formatTimestamp": timeline.FormatTimestamp,
	"pct": func(fraction float64) string {
		return strconv.FormatFloat(fraction*100, 'f', 3, 64)
	},
}

type pageData struct {
	State      session.State
	Report     types.Report
	MediaURL   string
	Processing string
	// UploadFailed is alerted when an upload cannot be submitted.
	UploadFailed string
	Client       clientState
}

// clientState is embedded into the page script as JSON.
type clientState struct {
	Version uint64 `json:"version"`
	VideoID string `json:"videoId"`
	Failure string `json:"failure"`
}

func newPageData(st session.State, rep types.Report) pageData {
	d := pageData{
		State:        st,
		Report:       rep,
		Processing:   processingText,
		UploadFailed: usecase.FailureMessage,
		Client:       clientState{Version: st.Version, Failure: st.Failure},
	}
	if st.Video != nil {
		d.MediaURL = "/media/" + st.Video.ID
		d.Client.VideoID = st.Video.ID
	}
	return d
}

var pageTemplate = template.Must(template.New("page").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>h8less</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background: #f5f5f7;
            color: #1d1d1f;
            display: flex;
            flex-direction: column;
            align-items: center;
            padding: 32px 16px;
            gap: 24px;
        }
        h1 { font-size: 28px; }
        .card { background: #fff; border-radius: 12px; padding: 24px; width: 100%; max-width: 960px; }
        .spinner { display: flex; align-items: center; gap: 12px; }
        .spinner::before {
            content: ""; width: 20px; height: 20px; border-radius: 50%;
            border: 3px solid #ddd; border-top-color: #e5484d;
            animation: spin 1s linear infinite;
        }
        @keyframes spin { to { transform: rotate(360deg); } }
        video { width: 100%; border-radius: 8px; background: #000; }
        .summary p { margin: 4px 0; }
        .timeline { position: relative; height: 24px; background: #e8e8ed; border-radius: 4px; margin: 16px 0; overflow: hidden; }
        .marker { position: absolute; top: 0; height: 100%; background: #e5484d; cursor: pointer; min-width: 2px; }
        .marker:hover { background: #b4232a; }
        .segments { list-style: none; }
        .segments li { padding: 8px 0; border-bottom: 1px solid #eee; cursor: pointer; }
        .segments li:hover { color: #e5484d; }
    </style>
</head>
<body>
    <h1>h8less</h1>

    <div class="card">
        {{if .State.Busy}}
        <div class="spinner" id="processing">{{.Processing}}</div>
        {{else}}
        <form id="upload-form">
            <input type="file" name="file" id="file" accept="video/*" required>
            <button type="submit" id="upload-button">Analyze</button>
        </form>
        {{end}}
    </div>

    {{if .State.Video}}
    <div class="card">
        <video id="player" src="{{.MediaURL}}" controls preload="metadata">
            <track kind="captions" src="{{.MediaURL}}/flags.vtt" srclang="en" label="Flagged speech" default>
        </video>

        <div class="summary">
            {{range .Report.Lines}}<p>{{.}}</p>{{end}}
        </div>

        {{if gt .Report.Duration 0.0}}
        <div class="timeline" id="timeline">
            {{range .Report.Entries}}
            <div class="marker" data-start="{{.Seek.TargetSeconds}}" title="{{.Title}}"
                 style="left: {{pct .Placement.OffsetFraction}}%; width: {{pct .Placement.WidthFraction}}%"></div>
            {{end}}
        </div>
        {{end}}

        <ul class="segments">
            {{range .Report.Entries}}
            <li data-start="{{.Seek.TargetSeconds}}">{{.Text}}</li>
            {{else}}
            <li>No hate speech detected.</li>
            {{end}}
        </ul>
    </div>
    {{end}}

    <script>
        (function() {
            var page = {{.Client}};
            var uploadFailed = {{.UploadFailed}};

            if (page.failure && sessionStorage.getItem('h8less-alerted') !== String(page.version)) {
                sessionStorage.setItem('h8less-alerted', String(page.version));
                alert(page.failure);
            }

            var form = document.getElementById('upload-form');
            if (form) {
                form.addEventListener('submit', function(e) {
                    e.preventDefault();
                    var input = document.getElementById('file');
                    if (!input.files.length) {
                        return;
                    }
                    var button = document.getElementById('upload-button');
                    button.disabled = true;
                    var body = new FormData();
                    body.append('file', input.files[0]);
                    fetch('/api/analyze', { method: 'POST', body: body }).then(function(res) {
                        if (res.ok) {
                            location.reload();
                            return;
                        }
                        return res.json().then(function(env) {
                            alert(env.error ? env.error.message : uploadFailed);
                        }, function() {
                            alert(uploadFailed);
                        }).then(function() {
                            button.disabled = false;
                        });
                    }).catch(function() {
                        alert(uploadFailed);
                        button.disabled = false;
                    });
                });
            }

            var player = document.getElementById('player');
            if (player) {
                document.querySelectorAll('[data-start]').forEach(function(el) {
                    el.addEventListener('click', function() {
                        player.currentTime = parseFloat(el.getAttribute('data-start'));
                    });
                });
                player.addEventListener('loadedmetadata', function() {
                    if (!isFinite(player.duration)) {
                        return;
                    }
                    fetch('/api/duration', {
                        method: 'POST',
                        headers: { 'Content-Type': 'application/json' },
                        body: JSON.stringify({ video_id: page.videoId, seconds: player.duration })
                    });
                });
            }

            var ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
            ws.onmessage = function(e) {
                var msg = JSON.parse(e.data);
                if (msg.event === 'session:update' && msg.data.version !== page.version) {
                    location.reload();
                }
            };
        })();
    </script>
</body>
</html>`))
