package binder

import (
	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/metrics"
	"github.com/xraph/binder/internal/naming"
	"github.com/xraph/binder/internal/registry"
)

// Engine
type (
	Engine         = naming.Engine
	Option         = naming.Option
	LookupRequest  = naming.LookupRequest
	ResolveOption  = naming.ResolveOption
	DeploymentUnit = naming.DeploymentUnit
	ScopeID        = naming.ScopeID
	ScopeInfo      = naming.ScopeInfo
	Level          = naming.Level
	Batch          = naming.Batch
	Entry          = naming.Entry
)

const (
	LevelComponent   = naming.LevelComponent
	LevelModule      = naming.LevelModule
	LevelApplication = naming.LevelApplication
	LevelGlobal      = naming.LevelGlobal

	NoScope     = naming.NoScope
	GlobalScope = naming.GlobalScope
)

var GlobalUnit = naming.GlobalUnit

var (
	WithConfig           = naming.WithConfig
	WithLogger           = naming.WithLogger
	WithMetrics          = naming.WithMetrics
	WithTracerProvider   = naming.WithTracerProvider
	WithFactoryRegistry  = naming.WithFactoryRegistry
	WithServiceRegistry  = naming.WithServiceRegistry
	WithDefaultProviders = naming.WithDefaultProviders
	WithMergeFunc        = naming.WithMergeFunc
	ResolveWithNaming    = naming.ResolveWithNaming
)

// Bindings
type (
	Binding      = naming.Binding
	Value        = naming.Value
	LazyValue    = naming.LazyValue
	Producer     = naming.Producer
	IndirectRef  = naming.IndirectRef
	RefOption    = naming.RefOption
	FactoryRef   = naming.FactoryRef
	ResourceInfo = naming.ResourceInfo
	AuthType     = naming.AuthType
	SharingScope = naming.SharingScope
)

const (
	AuthContainer   = naming.AuthContainer
	AuthApplication = naming.AuthApplication
	Shareable       = naming.Shareable
	Unshareable     = naming.Unshareable
)

var (
	NewValue         = naming.NewValue
	NewLazyValue     = naming.NewLazyValue
	NewIndirectRef   = naming.NewIndirectRef
	MustIndirectRef  = naming.MustIndirectRef
	WithResourceInfo = naming.WithResourceInfo
	WithListener     = naming.WithListener
	AsDefault        = naming.AsDefault
	NewFactoryRef    = naming.NewFactoryRef
	BuildFactoryRef  = naming.BuildFactoryRef
	DecodeFactoryRef = naming.DecodeFactoryRef
	ParseLevel       = naming.ParseLevel
	LevelOf          = naming.LevelOf
)

// Collaborators
type (
	ResourceFactory     = naming.ResourceFactory
	ResourceFactoryFunc = naming.ResourceFactoryFunc
	FactoryRegistry     = naming.FactoryRegistry
	Factories           = naming.Factories
	FactoryBuilder      = naming.FactoryBuilder
	Builders            = naming.Builders
	Properties          = naming.Properties
	ServiceRegistry     = naming.ServiceRegistry
	ServiceCandidate    = naming.ServiceCandidate
	Redirector          = naming.Redirector
	NamingContext       = naming.NamingContext
	NamingFunc          = naming.NamingFunc
	DefaultProvider     = naming.DefaultProvider
	DefaultProviderFunc = naming.DefaultProviderFunc
	DefaultProviders    = naming.DefaultProviders
	MergeFunc           = naming.MergeFunc
)

var (
	NewBuilders         = naming.NewBuilders
	NewDefaultProviders = naming.NewDefaultProviders
)

// Collaborator implementations
type (
	MemoryServices    = registry.MemoryServices
	RedisServices     = registry.RedisServices
	VesselFactories   = registry.VesselFactories
	MapNaming         = registry.MapNaming
	UnavailableNaming = registry.UnavailableNaming
	StaticBuilder     = registry.StaticBuilder
	EnvBuilder        = registry.EnvBuilder
	Registrar         = registry.Registrar
	ResourceConfig    = config.ResourceConfig
)

var (
	NewMemoryServices  = registry.NewMemoryServices
	NewRedisServices   = registry.NewRedisServices
	OpenRedisServices  = registry.OpenRedisServices
	NewVesselFactories = registry.NewVesselFactories
	FactoryKey         = registry.FactoryKey
	NewMapNaming       = registry.NewMapNaming
	StandardBuilder    = registry.StandardBuilder
	RegisterBuilders   = registry.RegisterBuilders
	RegisterResources  = registry.RegisterResources
)

// Deferred references
type (
	DeferredConsumer = naming.DeferredConsumer
	DeferredFunc     = naming.DeferredFunc
	PendingToken     = naming.PendingToken
	DeferredState    = naming.DeferredState
	PendingInfo      = naming.PendingInfo
)

const (
	DeferredPending   = naming.DeferredPending
	DeferredResolving = naming.DeferredResolving
	DeferredResolved  = naming.DeferredResolved
)

// Introspection
type (
	Snapshot       = naming.Snapshot
	ScopeSnapshot  = naming.ScopeSnapshot
	SharedSnapshot = naming.SharedSnapshot
	DumpOptions    = naming.DumpOptions
)

// Configuration, logging and metrics
type (
	Config           = config.Config
	ConfigOption     = config.ConfigOption
	LoggingConfig    = logger.LoggingConfig
	Logger           = logger.Logger
	MetricsCollector = metrics.Collector
)

var (
	DefaultConfig          = config.DefaultConfig
	WithDefaultResources   = config.WithDefaultResources
	WithFactoryWaitTimeout = config.WithFactoryWaitTimeout
	WithExternalPrefix     = config.WithExternalPrefix
	WithLogging            = config.WithLogging
	NewPrometheusMetrics   = metrics.NewPrometheus
)

// Errors
type (
	NamingError = errors.NamingError
	DeployError = errors.DeployError
)

const (
	CodeConfigurationError   = errors.CodeConfigurationError
	CodeDuplicateBinding     = errors.CodeDuplicateBinding
	CodeResolutionError      = errors.CodeResolutionError
	CodeLookupLoop           = errors.CodeLookupLoop
	CodeTransientUnavailable = errors.CodeTransientUnavailable
	CodeInternalInvariant    = errors.CodeInternalInvariant
	CodeIOError              = errors.CodeIOError
	CodeScopeNotFound        = errors.CodeScopeNotFound
	CodeTimeoutError         = errors.CodeTimeoutError
)

var (
	ErrEmptyName    = errors.ErrEmptyName
	ErrEmptyTarget  = errors.ErrEmptyTarget
	ErrNilBinding   = errors.ErrNilBinding
	ErrNilFactory   = errors.ErrNilFactory
	ErrEngineClosed = errors.ErrEngineClosed

	IsConfiguration        = errors.IsConfiguration
	IsDuplicateBinding     = errors.IsDuplicateBinding
	IsResolution           = errors.IsResolution
	IsLookupLoop           = errors.IsLookupLoop
	IsTransientUnavailable = errors.IsTransientUnavailable
	IsInternalInvariant    = errors.IsInternalInvariant
	IsIO                   = errors.IsIO
	IsScopeNotFound        = errors.IsScopeNotFound
	IsTimeout              = errors.IsTimeout
	IsAbsent               = errors.IsAbsent
	ResolutionVariant      = errors.ResolutionVariant
)
