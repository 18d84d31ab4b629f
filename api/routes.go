package api

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// setupRoutes registers the asset API
func setupRoutes(r chi.Router, handlers *routeHandlers, requestLogging func(http.Handler) http.Handler) {
	r.Get("/health", handlers.healthHandler.getHealth())

	r.Group(func(r chi.Router) {
		r.Use(requestLogging)

		// Project Handler endpoints
		r.Get("/projects", handlers.projectHandler.getAllProjects())
		r.Put("/projects/order", handlers.projectHandler.reorderProjects())
		r.Post("/project", handlers.projectHandler.createProject())
		r.Put("/project/{projectID}", handlers.projectHandler.updateProject())
		r.Delete("/project/{projectID}", handlers.projectHandler.deleteProject())

		// Image Handler endpoints
		r.Get("/project/{projectID}/images", handlers.imageHandler.getProjectImages())
		r.Put("/project/{projectID}/images/order", handlers.imageHandler.reorderImages())
		r.Put("/image/{imageID}", handlers.imageHandler.updateImage())
		r.Delete("/image/{imageID}", handlers.imageHandler.deleteImage())

		// Upload and storage endpoints
		r.Post("/upload", handlers.uploadHandler.uploadImages())
		r.Get("/storage", handlers.storageHandler.getStorageUsage())
	})
}

// setupStaticRoutes serves blobs of the local store under urlPrefix
func setupStaticRoutes(r chi.Router, urlPrefix, root string) {
	prefix := "/" + strings.Trim(urlPrefix, "/")
	if prefix == "/" {
		return
	}
	fileServer := http.StripPrefix(prefix, http.FileServer(blobFileSystem{http.Dir(root)}))
	r.Get(prefix+"/*", fileServer.ServeHTTP)
}

// blobFileSystem hides directory listings and staged or temporary files
type blobFileSystem struct {
	fs http.FileSystem
}

func (b blobFileSystem) Open(name string) (http.File, error) {
	base := name[strings.LastIndex(name, "/")+1:]
	if strings.HasPrefix(base, ".") {
		return nil, fs.ErrNotExist
	}
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
