package browser

// notifyBinding is the page function the bridge reports through.
const notifyBinding = "__formlessNotify"

// bridgeScript installs window.__formless in every frame realm. Each observe*
// call registers a watcher under the Go-side subscription id; unobserve tears
// it down. Reports are sent as __formlessNotify(id, payload).
const bridgeScript = `(() => {
  if (window.__formless) return;
  const notify = (id, payload) => {
    if (typeof window.__formlessNotify === 'function') {
      window.__formlessNotify(id, payload || {});
    }
  };
  const watchers = new Map();

  const countMatches = (node, selector) => {
    if (!(node instanceof Element)) return 0;
    let n = node.matches(selector) ? 1 : 0;
    return n + node.querySelectorAll(selector).length;
  };

  const boxOf = (el) => {
    const r = el.getBoundingClientRect();
    return { x: r.x, y: r.y, width: r.width, height: r.height };
  };

  window.__formless = {
    observeMutations(id, selector) {
      document.querySelector(selector); // throws on a bad selector
      const mo = new MutationObserver((records) => {
        let added = 0, removed = 0;
        for (const r of records) {
          r.addedNodes.forEach((n) => { added += countMatches(n, selector); });
          r.removedNodes.forEach((n) => { removed += countMatches(n, selector); });
        }
        if (added || removed) notify(id, { added, removed });
      });
      mo.observe(document.documentElement, { childList: true, subtree: true });
      watchers.set(id, () => mo.disconnect());
    },

    observeIntersection(id, el) {
      const io = new IntersectionObserver((entries) => {
        for (const e of entries) {
          const b = e.boundingClientRect;
          notify(id, {
            intersecting: e.isIntersecting,
            x: b.x, y: b.y, width: b.width, height: b.height,
          });
        }
      });
      io.observe(el);
      watchers.set(id, () => io.disconnect());
    },

    observeViewport(id) {
      const onScroll = () => notify(id, { kind: 'scroll' });
      const onResize = () => notify(id, { kind: 'resize' });
      window.addEventListener('scroll', onScroll, { passive: true, capture: true });
      window.addEventListener('resize', onResize, { passive: true });
      watchers.set(id, () => {
        window.removeEventListener('scroll', onScroll, { capture: true });
        window.removeEventListener('resize', onResize);
      });
    },

    observeClicks(id, el) {
      const onClick = (ev) => {
        ev.preventDefault();
        ev.stopPropagation();
        notify(id, {});
      };
      el.addEventListener('click', onClick);
      watchers.set(id, () => el.removeEventListener('click', onClick));
    },

    unobserve(id) {
      const stop = watchers.get(id);
      if (stop) {
        watchers.delete(id);
        stop();
      }
    },

    unobserveAll() {
      for (const stop of watchers.values()) stop();
      watchers.clear();
    },

    box: boxOf,
  };
})()`

// Element-level expressions, evaluated with the element as first argument.
const (
	jsTag        = `el => el.tagName.toLowerCase()`
	jsGetAttr    = `(el, name) => el.getAttribute(name)`
	jsSetAttr    = `(el, [name, value]) => el.setAttribute(name, value)`
	jsValue      = `el => (el.value === undefined || el.value === null) ? '' : String(el.value)`
	jsVisible    = `el => el.offsetParent !== null`
	jsConnected  = `el => el.isConnected`
	jsRemove     = `el => el.remove()`
	jsSelectOpts = `el => el.tagName === 'SELECT'
  ? Array.from(el.options).map(o => ({ value: o.value, text: o.text }))
  : null`

	// jsSetValue goes through the prototype setter so framework-controlled
	// inputs see the change.
	jsSetValue = `(el, value) => {
  const proto = Object.getPrototypeOf(el);
  const desc = Object.getOwnPropertyDescriptor(proto, 'value');
  if (desc && desc.set) {
    desc.set.call(el, value);
  } else {
    el.value = value;
  }
}`

	jsDispatch = `(el, [type, bubbles, composed]) => {
  const init = { bubbles, composed, cancelable: true };
  const ev = (type === 'focus' || type === 'blur' || type === 'focusin' || type === 'focusout')
    ? new FocusEvent(type, init)
    : new Event(type, init);
  el.dispatchEvent(ev);
}`

	jsClosest = `(el, selector) => el.closest(selector)`

	jsCreate = `([tag, attrs]) => {
  const el = document.createElement(tag);
  for (const [k, v] of Object.entries(attrs)) el.setAttribute(k, v);
  document.body.appendChild(el);
  return el;
}`

	jsScroll = `() => ({ x: window.scrollX, y: window.scrollY, width: window.innerWidth, height: window.innerHeight })`
)
