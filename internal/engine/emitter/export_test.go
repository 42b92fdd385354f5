package emitter

var InjectScripts = injectScripts
