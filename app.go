package pathflock

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

// Module installs resources and systems into an App.
type Module interface {
	Install(app *App, cmd *Commands)
}

// App drives systems stage by stage once per frame. Systems receive their
// arguments by type: *Commands or any pointer resource added earlier. A
// system may return an error, which stops Run.
type App struct {
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	order     []reflect.Type

	frame    uint64
	stopping bool
	err      error
}

func newApp() *App {
	app := &App{
		stages:    defaultStages(),
		systems:   make(map[string][]systemFn),
		resources: make(map[reflect.Type]any),
	}
	for _, s := range app.stages {
		app.systems[s.Name] = make([]systemFn, 0)
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// Frame is the number of completed frames.
func (app *App) Frame() uint64 { return app.frame }

// Run executes frames until a system fails, Stop is called or, when
// frames > 0, that many frames have completed.
func (app *App) Run(frames int) error {
	app.stopping = false
	app.err = nil
	for n := 0; frames <= 0 || n < frames; n++ {
		app.Step()
		if app.err != nil {
			return app.err
		}
		if app.stopping {
			break
		}
	}
	return nil
}

// Step executes every stage once. Stage timings go to the Profiler
// resource, if any.
func (app *App) Step() {
	profiler, _ := Resource[Profiler](app)
	for _, stage := range app.stages {
		if profiler != nil {
			profiler.BeginScope(stage.Name)
		}
		for _, system := range app.systems[stage.Name] {
			if err := app.callSystem(system); err != nil {
				if profiler != nil {
					profiler.EndScope(stage.Name)
				}
				app.err = fmt.Errorf("stage %s: %w", stage.Name, err)
				app.Logger().Errorf("%v", app.err)
				return
			}
		}
		if profiler != nil {
			profiler.EndScope(stage.Name)
		}
	}
	app.frame++
}

func (app *App) stop() {
	app.stopping = true
}

type releaser interface {
	Release()
}

// Shutdown releases resources implementing Release, newest first.
func (app *App) Shutdown() {
	for i := len(app.order) - 1; i >= 0; i-- {
		if r, ok := app.resources[app.order[i]].(releaser); ok {
			r.Release()
		}
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType == nil || resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %v must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
		app.order = append(app.order, resourceType.Elem())
	}
	return app
}

// Resource looks up a resource by its element type.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var (
	typeOfCommands = reflect.TypeOf(Commands{})
	typeOfError    = reflect.TypeOf((*error)(nil)).Elem()
)

func validateSystem(system systemFn) {
	t := reflect.TypeOf(system)
	if t == nil || t.Kind() != reflect.Func {
		panic(fmt.Sprintf("system %v is not a function", t))
	}
	for i := 0; i < t.NumIn(); i++ {
		if t.In(i).Kind() != reflect.Pointer {
			panic(fmt.Sprintf("system %s: argument %d must be a pointer", t, i))
		}
	}
	switch {
	case t.NumOut() == 0:
	case t.NumOut() == 1 && t.Out(0) == typeOfError:
	default:
		panic(fmt.Sprintf("system %s may only return error", t))
	}
}

func (app *App) callSystem(system systemFn) error {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())
	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			panic(fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				systemType,
				argType,
			))
		}
	}

	out := systemValue.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
