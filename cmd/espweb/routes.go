package main

import (
	"embed"
	"strings"
	"time"

	"github.com/freekieb7/espweb/config"
	"github.com/freekieb7/espweb/filesystem"
	"github.com/freekieb7/espweb/http"
	"github.com/freekieb7/espweb/session/storage"
	"github.com/freekieb7/espweb/transform"
	"github.com/tidwall/sjson"
)

//go:embed assets
var assets embed.FS

const bootSnippet = `<meta name="generator" content="espweb">`

// newEngine builds the request engine with the demo routes and mounts.
func newEngine(cfg *config.Config, store storage.Store, options ...http.Option) (*http.Server, error) {
	engineConfig := http.DefaultConfig()
	engineConfig.MaxBodySize = cfg.MaxBodySize
	engineConfig.ChunkSize = cfg.ChunkSize
	engineConfig.Session.CookieName = cfg.Session.CookieName
	engineConfig.Session.MaxAge = cfg.Session.MaxAge
	engineConfig.Session.Secure = cfg.Session.Secure

	engineConfig.Session.OnRotate = func(oldID, newID string) {
		store.Move(oldID, newID)
	}

	options = append([]http.Option{http.WithConfig(engineConfig), http.WithErrorRenderer(renderError)}, options...)
	server := http.NewServer(cfg.Name, options...)

	public, err := filesystem.MemoryFilesFromFS(assets, "assets/public")
	if err != nil {
		return nil, err
	}
	pages, err := filesystem.MemoryFilesFromFS(assets, "assets/site")
	if err != nil {
		return nil, err
	}

	site, _ := sjson.SetBytes(nil, "site.title", "espweb")
	site, _ = sjson.SetBytes(site, "site.name", cfg.Name)
	site, _ = sjson.SetBytes(site, "site.banner", "<em>embedded assets</em>")
	resolver := transform.JSONResolver(site)

	server.ServeStaticMemory("/", public, nil)
	if cfg.StaticDir != "" {
		server.ServeStatic("/static", filesystem.NewLocalFileSystem(cfg.StaticDir), "/", nil)
	}
	server.ServeStaticMemory("/site", pages, func(info *http.StaticInfo, req *http.Request, res *http.Response) {
		res.SetTemplateHandler(resolver)
		res.SetHeadInjection(bootSnippet)
	})

	router := &server.Router
	router.Use(http.RecoverMiddleware())

	router.GET("/", func(req *http.Request, res *http.Response) {
		res.Redirect("/site/", 0)
	})

	router.GET("/hello/:name", func(req *http.Request, res *http.Response) {
		name, _ := req.Param("name")
		res.SendText(http.StatusOK, "text/plain", "hello "+name)
	})

	router.GET("/api/time", func(req *http.Request, res *http.Response) {
		body, _ := sjson.SetBytes(nil, "time", time.Now().UTC().Format(time.RFC3339))
		body, _ = sjson.SetBytes(body, "request_id", req.ID())
		res.Send(http.StatusOK, "application/json", body)
	})

	router.POST("/form", func(req *http.Request, res *http.Response) {
		var body []byte
		for key, value := range req.FormValues() {
			body, _ = sjson.SetBytes(body, sjsonKey(key), value)
		}
		// an oversized body has already been answered
		if res.Committed() {
			return
		}
		if body == nil {
			body = []byte("{}")
		}
		res.Send(http.StatusOK, "application/json", body)
	})

	router.POST("/upload", func(req *http.Request, res *http.Response) {
		body := []byte("[]")
		err := req.ReadMultipart(func(part *http.Part) bool {
			entry, _ := sjson.SetBytes(nil, "name", part.Name)
			entry, _ = sjson.SetBytes(entry, "filename", part.Filename)
			entry, _ = sjson.SetBytes(entry, "size", part.Size)
			body, _ = sjson.SetRawBytes(body, "-1", entry)
			return true
		})
		if res.Committed() {
			return
		}
		if err != nil {
			res.SendError(http.StatusBadRequest, err.Error())
			return
		}
		res.Send(http.StatusOK, "application/json", body)
	})

	router.Group("/session", func(group *http.Router) {
		group.GET("/", func(req *http.Request, res *http.Response) {
			info, _ := req.Session()
			data, err := store.Get(info.ID)
			if err != nil {
				data = map[string]any{}
			}
			visits := visitsOf(data) + 1
			data["visits"] = visits
			if err := store.Save(info.ID, data); err != nil {
				res.SendError(http.StatusInternalServerError, "")
				return
			}

			sendSession(res, info.ID, visits)
		})
		group.POST("/rotate", func(req *http.Request, res *http.Response) {
			info, err := req.RotateSession(res)
			if err != nil {
				res.SendError(http.StatusInternalServerError, "")
				return
			}
			data, _ := store.Get(info.ID)
			sendSession(res, info.ID, visitsOf(data))
		})
	}, http.SessionMiddleware())

	router.GET("/stream", func(req *http.Request, res *http.Response) {
		res.BeginChunked(http.StatusOK, "text/plain")
		for i := 1; i <= 5; i++ {
			res.SendChunkString(strings.Repeat("*", i) + "\n")
		}
		res.EndChunked()
	})

	server.NotFound(func(req *http.Request, res *http.Response) {
		res.SendError(http.StatusNotFound, "no such page: "+req.Path())
	})

	return server, nil
}

// visitsOf reads the counter from a payload that may have been through JSON.
func visitsOf(data map[string]any) int {
	switch visits := data["visits"].(type) {
	case int:
		return visits
	case float64:
		return int(visits)
	}
	return 0
}

func sendSession(res *http.Response, id string, visits int) {
	body, _ := sjson.SetBytes(nil, "id", id)
	body, _ = sjson.SetBytes(body, "visits", visits)
	res.Send(http.StatusOK, "application/json", body)
}

var jsonRenderer = http.JSONErrorRenderer()

// renderError answers API paths with JSON and leaves the rest to the plain
// text fallback.
func renderError(req *http.Request, res *http.Response, code int, message string) {
	if strings.HasPrefix(req.Path(), "/api/") {
		jsonRenderer(req, res, code, message)
	}
}

// sjsonKey escapes the path syntax characters of sjson in a literal key.
func sjsonKey(key string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, ":", `\:`)
	return replacer.Replace(key)
}
