package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vulkanmc/engine/assets/loaders"
	"github.com/spaghettifunk/vulkanmc/engine/core"
	"github.com/spaghettifunk/vulkanmc/engine/resources"
)

// Pending notifications beyond this are dropped until the engine drains them.
const changeBufferSize = 64

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

type ChangeOp int

const (
	ChangeWritten ChangeOp = iota
	ChangeRemoved
)

// Change reports that an indexed asset was written or removed on disk.
type Change struct {
	Path string
	Type resources.ResourceType
	Op   ChangeOp
}

// AssetManager indexes shader binaries and config files under the watched
// paths and keeps the index current while the engine runs.
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	started  bool
	changes  chan Change
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[resources.ResourceType]Loader),
		fsnotify: fsWatch,
		changes:  make(chan Change, changeBufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Initialize registers the loaders, watches every directory under each of dirs
// and starts delivering changes.
func (am *AssetManager) Initialize(dirs ...string) error {
	am.registerLoader(resources.ResourceTypeShader, &loaders.ShaderLoader{})

	for _, dir := range dirs {
		if err := am.addRecursive(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
	}

	am.started = true
	am.wg.Add(1)
	go am.start()
	return nil
}

// WatchFile indexes a single file and watches its directory for changes to it.
// Editors often replace files instead of writing them in place, so the file
// itself can't be watched.
func (am *AssetManager) WatchFile(path string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err == nil {
		am.handleFileEvent(path)
	}
	return am.fsnotify.Add(filepath.Dir(path))
}

// Changes delivers change notifications. The channel is closed on Shutdown.
func (am *AssetManager) Changes() <-chan Change {
	return am.changes
}

// Lookup returns the index entry for path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Shutdown stops the watcher and waits for the event goroutine to exit.
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if !am.started {
		close(am.changes)
		return am.fsnotify.Close()
	}
	close(am.done)
	am.wg.Wait()
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads an indexed asset with the loader registered for its type.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*resources.Resource, error) {
	path = filepath.Clean(path)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, errors.Newf("asset not found: %s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(path, asset.Type, params)
}

func (am *AssetManager) UnloadAsset(asset *resources.Resource) error {
	loader, ok := am.loaders[asset.Type]
	if !ok {
		return errors.Newf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Unload(asset)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			close(am.changes)
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	path := filepath.Clean(e.Name)
	if s, err := os.Stat(path); err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(path); err != nil {
				core.LogWarn("failed to watch new directory %s: %s", path, err)
			}
		}
		return
	}

	assetType := determineAssetType(path)
	if assetType == resources.ResourceTypeNone {
		return
	}
	switch {
	case e.Has(fsnotify.Create) || e.Has(fsnotify.Write):
		am.handleFileEvent(path)
		am.publish(Change{Path: path, Type: assetType, Op: ChangeWritten})
	case e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename):
		am.removeAsset(path)
		am.publish(Change{Path: path, Type: assetType, Op: ChangeRemoved})
	}
}

func (am *AssetManager) publish(c Change) {
	select {
	case am.changes <- c:
	default:
		core.LogDebug("asset change buffer full, dropping %s", c.Path)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found on the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(filepath.Clean(walkPath))
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == resources.ResourceTypeNone {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) resources.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return resources.ResourceTypeShader
	case ".toml":
		return resources.ResourceTypeConfig
	default:
		return resources.ResourceTypeNone
	}
}
