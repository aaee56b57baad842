package server

import (
	"html/template"
	"time"
)

var funcs = template.FuncMap{
	"fmtTime": func(t time.Time) template.HTML {
		utc := t.UTC().Format(time.RFC3339)
		display := t.UTC().Format("2006-01-02 15:04")
		return template.HTML(`<time datetime="` + utc + `">` + display + `</time>`)
	},
	"markdown": renderMarkdown,
}

const layout = `{{define "header"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Forum</title>
<style>
  body { font-family: sans-serif; margin: 2em; color: #222; background: #fff; max-width: 60em; }
  a { color: #0366d6; text-decoration: none; }
  a:hover { text-decoration: underline; }
  nav { margin-bottom: 1.5em; padding-bottom: 0.5em; border-bottom: 1px solid #ccc; }
  nav a { margin-right: 1em; }
  h1 { margin-bottom: 0.2em; }
  table { border-collapse: collapse; width: 100%; margin-bottom: 1em; }
  th, td { text-align: left; padding: 0.35em 0.7em; border: 1px solid #ddd; }
  th { background: #f5f5f5; }
  .tag { display: inline-block; padding: 0.1em 0.5em; margin-right: 0.3em; border-radius: 4px; background: #f0f0f0; font-size: 0.85em; }
  .meta { color: #555; font-size: 0.9em; }
  .error { color: #b00020; font-size: 0.9em; }
  .body { border: 1px solid #ddd; border-radius: 4px; padding: 0.5em 1em; }
  ul.comments { list-style: none; padding-left: 1.2em; border-left: 2px solid #eee; }
  ul.comments li { margin: 0.6em 0; }
  details.reply summary { cursor: pointer; color: #555; font-size: 0.85em; }
  label { display: block; margin-top: 0.6em; }
  input[type=text], textarea { width: 100%; box-sizing: border-box; }
</style>
</head>
<body>
<nav><a href="/">Home</a><a href="/groups/new">New group</a><a href="/reddit">reddit</a></nav>
{{end}}
{{define "footer"}}</body>
</html>
{{end}}
{{define "fielderror"}}{{if .}}<div class="error">{{.}}</div>{{end}}{{end}}
{{define "tags"}}{{range .}}<span class="tag">{{.}}</span>{{end}}{{end}}
`

func page(name, body string) *template.Template {
	t := template.Must(template.New(name).Funcs(funcs).Parse(layout))
	return template.Must(t.Parse(body))
}

var indexTmpl = page("index", `{{template "header" .}}
<h1>Groups</h1>
<p class="meta">{{if .User}}Signed in as {{.User}}. <form method="post" action="/logout" style="display:inline"><button>Log out</button></form>{{else}}<a href="/login">Log in</a>{{end}}</p>
{{if .Groups}}
<table>
<tr><th>Name</th><th>Title</th><th>Created</th></tr>
{{range .Groups}}<tr><td><a href="/{{.Name}}">{{.Name}}</a></td><td>{{.Title}}</td><td>{{fmtTime .CreatedAt}}</td></tr>
{{end}}</table>
{{else}}<p>No groups yet. <a href="/groups/new">Create one</a>.</p>{{end}}
{{if .TopTags}}<h2>Top tags</h2>
<p>{{range .TopTags}}<span class="tag">{{.Name}} ({{.Count}})</span>{{end}}</p>{{end}}
{{template "footer" .}}`)

var groupFormTmpl = page("group_form", `{{template "header" .}}
<h1>New group</h1>
<form method="post" action="/groups/new">
<label>Title <input type="text" name="title" value="{{.Title}}"></label>
{{template "fielderror" .Errors.title}}
<label>Name <input type="text" name="name" value="{{.Name}}"></label>
{{template "fielderror" .Errors.name}}
<p><button type="submit">Create</button></p>
</form>
{{template "footer" .}}`)

var groupTmpl = page("group", `{{template "header" .}}
<h1>{{.Group.Title}}</h1>
<p class="meta">/{{.Group.Name}} · <a href="/{{.Group.Name}}/new">New topic</a></p>
{{if .Topics}}
<table>
<tr><th>Title</th><th>Author</th><th>Tags</th><th>Created</th></tr>
{{range .Topics}}<tr><td><a href="/{{.Group}}/{{.ID}}">{{.Title}}</a></td><td>{{.Author}}</td><td>{{template "tags" .Tags}}</td><td>{{fmtTime .CreatedAt}}</td></tr>
{{end}}</table>
{{else}}<p>No topics yet.</p>{{end}}
{{if .TopTags}}<h2>Top tags</h2>
<p>{{range .TopTags}}<span class="tag">{{.Name}} ({{.Count}})</span>{{end}}</p>{{end}}
{{template "footer" .}}`)

var topicFormTmpl = page("topic_form", `{{template "header" .}}
<h1>{{if .Editing}}Edit topic{{else}}New topic in {{.Group}}{{end}}</h1>
<form method="post" action="{{.Action}}">
<label>Title <input type="text" name="title" value="{{.Title}}"></label>
{{template "fielderror" .Errors.title}}
<label>Body <textarea name="body" rows="12">{{.Body}}</textarea></label>
{{template "fielderror" .Errors.body}}
<label>Tags <input type="text" name="tags" value="{{.Tags}}" placeholder="comma, separated"></label>
{{template "fielderror" .Errors.tags}}
<p><button type="submit">{{if .Editing}}Save{{else}}Post{{end}}</button></p>
</form>
{{template "footer" .}}`)

var topicTmpl = page("topic", `{{template "header" .}}
<p class="meta"><a href="/{{.Topic.Group}}">/{{.Topic.Group}}</a></p>
<h1>{{.Topic.Title}}</h1>
<p class="meta">by {{.Topic.Author}} · {{fmtTime .Topic.CreatedAt}} · <a href="/{{.Topic.Group}}/{{.Topic.ID}}/edit">edit</a></p>
<p>{{template "tags" .Topic.Tags}}</p>
<div class="body">{{markdown .Topic.Body}}</div>
<h2>Comments</h2>
{{if .Comments}}<ul class="comments">{{range .Comments}}{{template "comment" .}}{{end}}</ul>{{else}}<p>No comments yet.</p>{{end}}
<h3>Reply</h3>
<form method="post" action="/{{.Topic.Group}}/{{.Topic.ID}}">
<input type="hidden" name="parent_id" value="">
<textarea name="body" rows="5">{{.Body}}</textarea>
{{template "fielderror" .Errors.body}}{{template "fielderror" .Errors.parent_id}}
<p><button type="submit">Reply</button></p>
</form>
<script type="application/json" id="comment-graph">{{.Comments}}</script>
{{template "footer" .}}
{{define "comment"}}<li id="c{{.ID}}">
<div class="meta">{{.Author}} · {{fmtTime .CreatedAt}}</div>
<div>{{markdown .Body}}</div>
<details class="reply"><summary>reply</summary>
<form method="post">
<input type="hidden" name="parent_id" value="{{.ID}}">
<textarea name="body" rows="3"></textarea>
<button type="submit">Reply</button>
</form></details>
{{if .Replies}}<ul class="comments">{{range .Replies}}{{template "comment" .}}{{end}}</ul>{{end}}
</li>{{end}}`)

var loginTmpl = page("login", `{{template "header" .}}
<h1>Log in</h1>
<form method="post" action="/login">
<label>Username <input type="text" name="username" value="{{.Username}}"></label>
{{template "fielderror" .Errors.username}}
<p><button type="submit">Log in</button></p>
</form>
{{template "footer" .}}`)

var feedTmpl = page("feed", `{{template "header" .}}
<h1>reddit</h1>
<p class="meta">/r/{{.Subreddit}}</p>
<table>
<tr><th>Title</th><th>Author</th><th>Score</th><th>Comments</th><th>Created</th></tr>
{{range .Topics}}<tr><td><a href="/reddit/{{.ID}}">{{.Title}}</a></td><td>{{.Author}}</td><td>{{.Score}}</td><td>{{.Comments}}</td><td>{{fmtTime .CreatedAt}}</td></tr>
{{end}}</table>
{{template "footer" .}}`)

var feedThreadTmpl = page("feed_thread", `{{template "header" .}}
<p class="meta"><a href="/reddit">/reddit</a></p>
<h1>{{.Topic.Title}}</h1>
<p class="meta">by {{.Topic.Author}} · {{fmtTime .Topic.CreatedAt}} · score {{.Topic.Score}}{{if .Topic.URL}} · <a href="{{.Topic.URL}}">link</a>{{end}}</p>
{{if .Topic.Body}}<div class="body">{{markdown .Topic.Body}}</div>{{end}}
<h2>Comments</h2>
{{if .Comments}}<ul class="comments">{{range .Comments}}{{template "feedcomment" .}}{{end}}</ul>{{else}}<p>No comments.</p>{{end}}
{{template "footer" .}}
{{define "feedcomment"}}<li>
<div class="meta">{{.Author}} · {{fmtTime .CreatedAt}} · {{.Score}}</div>
<div>{{markdown .Body}}</div>
{{if .Replies}}<ul class="comments">{{range .Replies}}{{template "feedcomment" .}}{{end}}</ul>{{end}}
</li>{{end}}`)

var errorTmpl = page("error", `{{template "header" .}}
<h1>{{.Status}}</h1>
<p>{{.Message}}</p>
{{template "footer" .}}`)
