package hydrate

import (
	"encoding/json"
	"strings"

	"github.com/vango-dev/terse/internal/errors"
)

// ManifestElementID is the id of the script element holding the manifest.
const ManifestElementID = "__terse_manifest"

// bootstrap revives the snapshot the way serial.Deserialize does, builds
// one store and schedules every island. It expects the client runtime at
// window.terse with createStore(state) and mount(spec, store, element).
const bootstrap = `(function(){` +
	`var el=document.getElementById("` + ManifestElementID + `");` +
	`if(!el||!window.terse)return;` +
	`var m=JSON.parse(el.textContent);` +
	`function revive(raw){var byPath={},fix=[];` +
	`function item(v,path,c,k){if(v&&typeof v==="object"&&!Array.isArray(v)&&Object.keys(v).length===1&&typeof v.$ref==="string"){fix.push([c,k,v.$ref]);return null}return walk(v,path)}` +
	`function walk(v,path){` +
	`if(Array.isArray(v)){var a=new Array(v.length);byPath[path]=a;for(var i=0;i<v.length;i++){a[i]=item(v[i],path+"/"+i,a,i)}return a}` +
	`if(v&&typeof v==="object"){var ks=Object.keys(v);` +
	`if(ks.length===1&&ks[0]==="$num")return v.$num==="NaN"?NaN:v.$num==="+Inf"?Infinity:-Infinity;` +
	`if(ks.length===1&&ks[0]==="$unsupported")return null;` +
	`var o={};byPath[path]=o;ks.forEach(function(k){var key=k.slice(0,2)==="$$"?k.slice(1):k;` +
	`o[key]=item(v[k],path+"/"+k.replace(/~/g,"~0").replace(/\//g,"~1"),o,key)});return o}` +
	`return v}` +
	`var out=walk(raw,"");fix.forEach(function(f){f[0][f[1]]=byPath[f[2]]});return out}` +
	`var store=terse.createStore(revive(m.state));` +
	`function sel(id){return '[data-island="'+(window.CSS&&CSS.escape?CSS.escape(id):id)+'"]'}` +
	`function mount(e,node){node.textContent="";terse.mount(e.spec,store,node)}` +
	`m.islands.forEach(function(e){var node=document.querySelector(sel(e.id));if(!node)return;` +
	`switch(e.strategy){` +
	`case "load":mount(e,node);break;` +
	`case "idle":(window.requestIdleCallback||function(f){return setTimeout(f,1)})(function(){mount(e,node)});break;` +
	`case "visible":if(!window.IntersectionObserver){mount(e,node);break}` +
	`var io=new IntersectionObserver(function(es){if(es.some(function(x){return x.isIntersecting})){io.disconnect();mount(e,node)}});io.observe(node);break;` +
	`case "media":var mq=matchMedia(e.media),done=false;` +
	`var check=function(){if(!done&&mq.matches){done=true;mount(e,node)}};check();if(!done)mq.addEventListener("change",check);break}` +
	`})})();`

// FillRuntime defines __terseFill, which swaps a streamed island's
// template in for its placeholder. It must run before the first fill.
const FillRuntime = `window.__terseFill=function(id){` +
	`var t=document.querySelector('template[data-fill="'+id+'"]'),` +
	`p=document.querySelector('[data-island="'+id+'"][data-pending]');` +
	`if(t&&p){p.replaceWith(t.content);t.remove()}};`

// GenerateScript returns the manifest and bootstrap script elements for
// islands over a state snapshot.
func GenerateScript(islands []Island, snapshot string) (string, error) {
	m, err := NewManifest(islands, snapshot)
	if err != nil {
		return "", err
	}
	return m.Script()
}

// Script renders the manifest as script elements. The JSON is escaped for
// embedding, so it cannot close the element early.
func (m *Manifest) Script() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", errors.New("E401").WithDetail("manifest encoding failed").Wrap(err)
	}
	var b strings.Builder
	b.WriteString(`<script type="application/json" id="` + ManifestElementID + `">`)
	b.Write(embed(data))
	b.WriteString("</script><script>")
	b.WriteString(bootstrap)
	b.WriteString("</script>")
	return b.String(), nil
}

// embed makes JSON safe inside a script element. json.Marshal already
// escapes <, > and &; this also covers raw messages passed through.
func embed(data []byte) []byte {
	s := strings.NewReplacer("<", `\u003c`, ">", `\u003e`, "&", `\u0026`).Replace(string(data))
	return []byte(s)
}

// FillCall returns the script that fills the placeholder of island id.
func FillCall(id string) string {
	arg, _ := json.Marshal(id)
	return "<script>__terseFill(" + string(embed(arg)) + ")</script>"
}
